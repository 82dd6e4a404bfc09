package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/audit"
	"mercator-hq/archivist/pkg/cli"
)

// Search sources.
const (
	sourceArchive = "archive"
	sourcePrimary = "primary"
)

var searchFlags struct {
	start     string
	end       string
	eventType string
	severity  string
	user      string
	target    string
	source    string
	limit     int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search archived or primary audit records",
	Long: `Search audit records created within [start, end]. By default the daily and
monthly archives are scanned; --source primary queries the primary store.
Results are listed newest first.

Examples:
  # Every archived deletion in September
  archivist search --start 2026-09-01 --end 2026-09-30 --type USER_DELETED

  # High severity events in the primary store as CSV
  archivist search --source primary --start 2026-10-01 --end 2026-10-18 --severity HIGH -o csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return searchRecords(ctx, cmd, a)
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchFlags.start, "start", "", "window start (RFC 3339 or YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchFlags.end, "end", "", "window end (RFC 3339 or YYYY-MM-DD, inclusive day)")
	searchCmd.Flags().StringVar(&searchFlags.eventType, "type", "", "event type filter")
	searchCmd.Flags().StringVar(&searchFlags.severity, "severity", "", "severity filter (LOW, MEDIUM, HIGH, CRITICAL)")
	searchCmd.Flags().StringVar(&searchFlags.user, "user", "", "user filter (primary source only)")
	searchCmd.Flags().StringVar(&searchFlags.target, "target", "", "target filter (primary source only)")
	searchCmd.Flags().StringVar(&searchFlags.source, "source", sourceArchive, "where to search (archive, primary)")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 100, "maximum number of records")
	searchCmd.MarkFlagRequired("start")
	searchCmd.MarkFlagRequired("end")
}

func searchRecords(ctx context.Context, cmd *cobra.Command, a *app) error {
	loc := a.archives.Location()
	start, err := parseBound("start", searchFlags.start, loc, false)
	if err != nil {
		return err
	}
	end, err := parseBound("end", searchFlags.end, loc, true)
	if err != nil {
		return err
	}

	var severity audit.Severity
	if searchFlags.severity != "" {
		if severity, err = audit.ParseSeverity(searchFlags.severity); err != nil {
			return err
		}
	}
	if searchFlags.limit <= 0 {
		return cli.NewConfigError("limit", "must be positive")
	}

	var records []*audit.Record
	switch searchFlags.source {
	case sourceArchive:
		if searchFlags.user != "" || searchFlags.target != "" {
			return cli.NewConfigError("source", "--user and --target require --source primary")
		}
		records, err = a.service.SearchArchives(ctx, start, end, searchFlags.eventType, severity)
		if err == nil && len(records) > searchFlags.limit {
			records = records[:searchFlags.limit]
		}
	case sourcePrimary:
		filter := &audit.Filter{
			EventType: searchFlags.eventType,
			Severity:  severity,
			UserID:    searchFlags.user,
			TargetID:  searchFlags.target,
			StartTime: &start,
			EndTime:   &end,
		}
		records, err = a.service.SearchLogs(ctx, filter, audit.Page{Limit: searchFlags.limit})
	default:
		return cli.NewConfigError("source", fmt.Sprintf("unknown source %q (must be archive or primary)", searchFlags.source))
	}
	if err != nil {
		return err
	}
	return render(cmd, recordTable(records))
}
