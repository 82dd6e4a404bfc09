package main

import (
	"context"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
	"mercator-hq/archivist/pkg/orchestrator"
	"mercator-hq/archivist/pkg/tasks"
)

var cleanupFlags struct {
	retentionDays int
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete archives past retention",
	Long: `Delete daily and monthly archives older than the retention period. The
cutoff never moves inside archive.retention_floor_days. When
orchestrator.primary_retention_days is positive, aged primary records are
archived first.

Examples:
  # Use orchestrator.cleanup_retention_days
  archivist cleanup

  # Keep two years of archives
  archivist cleanup --retention-days 730`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runCleanup(ctx, cmd, a)
		})
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupFlags.retentionDays, "retention-days", 0, "age in days of archives to delete (default orchestrator.cleanup_retention_days)")
}

func runCleanup(ctx context.Context, cmd *cobra.Command, a *app) error {
	days := cleanupFlags.retentionDays
	if !cmd.Flags().Changed("retention-days") {
		days = a.orch.CleanupRetentionDays()
	}
	if days <= 0 {
		return cli.NewConfigError("retention-days", "must be positive")
	}

	task, err := orchestrator.NewCleanupTask(a.now(), days, tasks.WithMaxRetries(a.cfg.Retry.MaxRetries))
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
