package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/archive"
	"mercator-hq/archivist/pkg/cli"
)

var verifyFlags struct {
	date  string
	from  string
	to    string
	month string
}

var errVerifyFailed = errors.New("archive verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify archive checksums",
	Long: `Recompute the SHA-256 checksum of daily or monthly archives and compare it
with the checksum stored in their metadata. Exits non-zero if any archive is
invalid or missing.

Examples:
  archivist verify --date 2026-10-18
  archivist verify --from 2026-10-01 --to 2026-10-18
  archivist verify --month 2026-09`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return verifyArchives(ctx, cmd, a)
		})
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyFlags.date, "date", "", "daily archive to verify (YYYY-MM-DD)")
	verifyCmd.Flags().StringVar(&verifyFlags.from, "from", "", "first daily archive of a range (YYYY-MM-DD)")
	verifyCmd.Flags().StringVar(&verifyFlags.to, "to", "", "last daily archive of a range (YYYY-MM-DD)")
	verifyCmd.Flags().StringVar(&verifyFlags.month, "month", "", "monthly archive to verify (YYYY-MM)")
	verifyCmd.MarkFlagsMutuallyExclusive("date", "from", "month")
	verifyCmd.MarkFlagsRequiredTogether("from", "to")
	verifyCmd.MarkFlagsOneRequired("date", "from", "month")
}

func verifyArchives(ctx context.Context, cmd *cobra.Command, a *app) error {
	loc := a.archives.Location()
	var rows verifyTable

	switch {
	case verifyFlags.month != "":
		ym, err := archive.ParseYearMonth(verifyFlags.month)
		if err != nil {
			return cli.NewConfigError("month", err.Error())
		}
		ok, err := a.archives.VerifyMonthlyArchive(ctx, ym)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.Warn("archive unreadable", "year_month", ym.String(), "error", err)
		}
		rows = append(rows, verifyRow{Archive: a.archives.MonthlyArchivePath(ym), Valid: ok})

	default:
		first, err := parseDate("date", verifyFlags.date+verifyFlags.from, loc)
		if err != nil {
			return err
		}
		last := first
		if verifyFlags.to != "" {
			if last, err = parseDate("to", verifyFlags.to, loc); err != nil {
				return err
			}
		}
		for _, day := range daysBetween(first, last) {
			ok, err := a.archives.VerifyArchive(ctx, day)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				slog.Warn("archive unreadable", "date", day.Format(dateLayout), "error", err)
			}
			rows = append(rows, verifyRow{Archive: a.archives.DailyArchivePath(day), Valid: ok})
		}
	}

	if err := render(cmd, rows); err != nil {
		return err
	}
	invalid := 0
	for _, r := range rows {
		if !r.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d archives invalid", errVerifyFailed, invalid, len(rows))
	}
	return nil
}
