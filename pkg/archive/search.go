package archive

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/audit/codec"
)

// SearchArchives scans the daily and monthly archives whose covered range
// intersects [start, end] and returns the records with start < CreatedAt <
// end that match eventType and severity (empty means any). Files that fail
// to read or parse are logged and skipped. Records covered by both a daily
// and a monthly archive are returned twice.
//
// The window must satisfy end > start and be no longer than the configured
// maximum, otherwise a ValidationError is returned.
func (s *Store) SearchArchives(ctx context.Context, start, end time.Time, eventType string, severity audit.Severity) ([]*audit.Record, error) {
	if !end.After(start) {
		return nil, audit.NewValidationError("window", "end must be after start")
	}
	if end.Sub(start) > s.config.MaxSearchWindow {
		return nil, audit.NewValidationError("window",
			fmt.Sprintf("window %s exceeds maximum of %s", end.Sub(start), s.config.MaxSearchWindow))
	}

	m := &matcher{start: start, end: end, eventType: eventType, severity: severity}
	results := []*audit.Record{}
	loc := s.config.Location

	err := walkArchives(s.config.BaseDir, dailyDir, dailySuffix, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if day, ok := dateFromDailyName(d.Name(), loc); ok && !overlaps(day, endOfDay(day), start, end) {
			return nil
		}

		meta, logs, _, err := readDaily(path)
		if err != nil {
			s.logger.Warn("skipping unreadable archive", "archive_path", path, "error", err)
			return nil
		}
		if !overlaps(meta.StartDate, meta.EndDate, start, end) {
			return nil
		}
		results = append(results, s.filterLogs(path, logs, m)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = walkArchives(s.config.BaseDir, monthlyDir, monthlySuffix, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ym, ok := monthFromMonthlyName(d.Name()); ok {
			first := ym.First(loc)
			if !overlaps(first, first.AddDate(0, 1, 0), start, end) {
				return nil
			}
		}

		meta, dailies, err := readMonthly(path)
		if err != nil {
			s.logger.Warn("skipping unreadable archive", "archive_path", path, "error", err)
			return nil
		}
		if !overlaps(meta.StartDate, meta.EndDate, start, end) {
			return nil
		}
		for _, f := range dailies {
			entry := filepath.Join(path, f.Name)
			_, logs, err := decodeDaily(f.Data)
			if err != nil {
				s.logger.Warn("skipping unreadable bundled archive", "archive_path", entry, "error", err)
				continue
			}
			results = append(results, s.filterLogs(entry, logs, m)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("archive search completed",
		"start", start,
		"end", end,
		"event_type", eventType,
		"severity", severity,
		"result_count", len(results),
	)

	return results, nil
}

func (s *Store) filterLogs(path string, logs []byte, m *matcher) []*audit.Record {
	records, err := codec.Deserialize(logs)
	if err != nil {
		s.logger.Warn("skipping archive with malformed records", "archive_path", path, "error", err)
		return nil
	}

	var out []*audit.Record
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

type matcher struct {
	start, end time.Time
	eventType  string
	severity   audit.Severity
}

// match applies the exclusive time window and the exact-match filters.
func (m *matcher) match(r *audit.Record) bool {
	if !r.CreatedAt.After(m.start) || !r.CreatedAt.Before(m.end) {
		return false
	}
	if m.eventType != "" && r.EventType != m.eventType {
		return false
	}
	if m.severity != "" && r.Severity != m.severity {
		return false
	}
	return true
}

// overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !aStart.After(bEnd)
}
