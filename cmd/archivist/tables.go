package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/tasks"
)

// recordTable renders audit records.
type recordTable []*audit.Record

func (t recordTable) Header() []string {
	return []string{"ID", "CREATED_AT", "EVENT_TYPE", "SEVERITY", "USER", "TARGET", "DESCRIPTION"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.EventType,
			string(r.Severity),
			r.UserID,
			r.TargetID,
			r.Description,
		})
	}
	return rows
}

// resultTable renders task results.
type resultTable []*tasks.Result

func (t resultTable) Header() []string {
	return []string{"TASK_ID", "TYPE", "STATUS", "DURATION", "RETRIES", "DETAILS", "ERROR"}
}

func (t resultTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.TaskID,
			string(r.Type),
			string(r.Status),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.RetryCount),
			payloadSummary(r.Payload),
			r.ErrorMessage,
		})
	}
	return rows
}

// payloadSummary renders a payload as sorted key=value pairs.
func payloadSummary(payload map[string]any) string {
	keys := slices.Sorted(maps.Keys(payload))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

// statsView combines archive statistics with the primary store size.
type statsView struct {
	Archive        *archive.Statistics `json:"archive"`
	PrimaryRecords int64               `json:"primaryRecords"`
}

func (v statsView) Header() []string {
	return []string{"METRIC", "VALUE"}
}

func (v statsView) Rows() [][]string {
	s := v.Archive
	rows := [][]string{
		{"primary_records", strconv.FormatInt(v.PrimaryRecords, 10)},
		{"archive_files", strconv.Itoa(s.TotalFiles)},
		{"archived_records", strconv.FormatInt(s.TotalRecords, 10)},
		{"archive_bytes", strconv.FormatInt(s.TotalBytes, 10)},
		{"compression_ratio", strconv.FormatFloat(s.CompressionRatio, 'f', 2, 64)},
	}
	if !s.Oldest.IsZero() {
		rows = append(rows,
			[]string{"oldest", s.Oldest.Format("2006-01-02")},
			[]string{"newest", s.Newest.Format("2006-01-02")},
		)
	}
	return rows
}

// verifyTable renders archive verification outcomes.
type verifyTable []verifyRow

type verifyRow struct {
	Archive string `json:"archive"`
	Valid   bool   `json:"valid"`
}

func (t verifyTable) Header() []string {
	return []string{"ARCHIVE", "VALID"}
}

func (t verifyTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{r.Archive, strconv.FormatBool(r.Valid)})
	}
	return rows
}

// countView reports a single count.
type countView struct {
	Operation string `json:"operation"`
	Count     int    `json:"count"`
	Cutoff    string `json:"cutoff,omitempty"`
}

func (v countView) Header() []string {
	return []string{"OPERATION", "COUNT", "CUTOFF"}
}

func (v countView) Rows() [][]string {
	return [][]string{{v.Operation, strconv.Itoa(v.Count), v.Cutoff}}
}
