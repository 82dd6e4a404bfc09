package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/orchestrator"
	"mercator-hq/archivist/pkg/tasks"
)

var archiveFlags struct {
	date      string
	from      string
	to        string
	month     string
	olderThan int
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Create archives",
	Long:  `Create daily or monthly archives, or move aged records out of the primary store.`,
}

var archiveDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Archive one or more days of primary records",
	Long: `Archive the primary records of one day, or of every day in a range, into
gzip-compressed daily archives. Re-archiving a day merges with the existing file.

Examples:
  # Archive yesterday
  archivist archive daily

  # Archive a specific day
  archivist archive daily --date 2026-10-18

  # Archive a range of days
  archivist archive daily --from 2026-10-01 --to 2026-10-18`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return archiveDaily(ctx, cmd, a)
		})
	},
}

var archiveMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Bundle a month of daily archives",
	Long: `Bundle every daily archive of a month into one tar archive. Defaults to the
previous month.

Examples:
  archivist archive monthly --month 2026-09`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return archiveMonthly(ctx, cmd, a)
		})
	},
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Move aged primary records into daily archives",
	Long: `Archive every primary record older than the given number of days and
delete it from the primary store once its daily archive verifies.

Examples:
  # Use orchestrator.primary_retention_days
  archivist archive purge

  # Keep only the last 30 days in the primary store
  archivist archive purge --older-than 30`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return archivePurge(ctx, cmd, a)
		})
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveDailyCmd, archiveMonthlyCmd, archivePurgeCmd)

	archiveDailyCmd.Flags().StringVar(&archiveFlags.date, "date", "", "day to archive (YYYY-MM-DD, default yesterday)")
	archiveDailyCmd.Flags().StringVar(&archiveFlags.from, "from", "", "first day of a range (YYYY-MM-DD)")
	archiveDailyCmd.Flags().StringVar(&archiveFlags.to, "to", "", "last day of a range (YYYY-MM-DD, default yesterday)")
	archiveDailyCmd.MarkFlagsMutuallyExclusive("date", "from")
	archiveDailyCmd.MarkFlagsMutuallyExclusive("date", "to")

	archiveMonthlyCmd.Flags().StringVar(&archiveFlags.month, "month", "", "month to bundle (YYYY-MM, default last month)")

	archivePurgeCmd.Flags().IntVar(&archiveFlags.olderThan, "older-than", 0, "age in days of records to move (default orchestrator.primary_retention_days)")
}

// archiveDays resolves the --date/--from/--to flags.
func archiveDays(now time.Time) ([]time.Time, error) {
	loc := now.Location()
	y, m, d := now.Date()
	yesterday := time.Date(y, m, d-1, 0, 0, 0, 0, loc)

	if archiveFlags.date != "" {
		day, err := parseDate("date", archiveFlags.date, loc)
		if err != nil {
			return nil, err
		}
		return []time.Time{day}, nil
	}
	if archiveFlags.from == "" {
		if archiveFlags.to != "" {
			return nil, cli.NewConfigError("to", "--to requires --from")
		}
		return []time.Time{yesterday}, nil
	}

	first, err := parseDate("from", archiveFlags.from, loc)
	if err != nil {
		return nil, err
	}
	last := yesterday
	if archiveFlags.to != "" {
		if last, err = parseDate("to", archiveFlags.to, loc); err != nil {
			return nil, err
		}
	}
	if last.Before(first) {
		return nil, cli.NewConfigError("to", "--to must not be before --from")
	}
	return daysBetween(first, last), nil
}

func archiveDaily(ctx context.Context, cmd *cobra.Command, a *app) error {
	now := a.now()
	days, err := archiveDays(now)
	if err != nil {
		return err
	}

	var progress cli.ProgressReporter
	if len(days) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "days")
		progress.Start(int64(len(days)))
	}

	results := make(resultTable, 0, len(days))
	for i, day := range days {
		task, err := orchestrator.DailyArchiveTaskFor(day, now, tasks.WithMaxRetries(a.cfg.Retry.MaxRetries))
		if err != nil {
			return err
		}
		result, err := a.runTask(ctx, task)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			if renderErr := render(cmd, results); renderErr != nil {
				return renderErr
			}
			return fmt.Errorf("archive %s: %w", day.Format(dateLayout), err)
		}
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}
	return render(cmd, results)
}

func archiveMonthly(ctx context.Context, cmd *cobra.Command, a *app) error {
	now := a.now()
	ym := archive.YearMonthOf(now).Previous()
	if archiveFlags.month != "" {
		var err error
		if ym, err = archive.ParseYearMonth(archiveFlags.month); err != nil {
			return cli.NewConfigError("month", err.Error())
		}
	}

	task, err := orchestrator.MonthlyArchiveTaskFor(ym, now, tasks.WithMaxRetries(a.cfg.Retry.MaxRetries))
	if err != nil {
		return err
	}
	result, err := a.runTask(ctx, task)
	if result != nil {
		if renderErr := render(cmd, resultTable{result}); renderErr != nil {
			return renderErr
		}
	}
	return err
}

func archivePurge(ctx context.Context, cmd *cobra.Command, a *app) error {
	days := archiveFlags.olderThan
	if !cmd.Flags().Changed("older-than") {
		days = a.cfg.Orchestrator.PrimaryRetentionDays
	}
	if days <= 0 {
		return cli.NewConfigError("older-than", "primary retention is disabled; pass --older-than with a positive number of days")
	}

	cutoff := a.now().AddDate(0, 0, -days)
	moved, err := a.service.ArchiveOldLogs(ctx, cutoff)
	if renderErr := render(cmd, countView{Operation: "purge", Count: moved, Cutoff: cutoff.Format(time.RFC3339)}); renderErr != nil {
		return renderErr
	}
	return err
}
