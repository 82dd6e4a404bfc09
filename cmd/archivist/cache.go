package main

import (
	"context"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/orchestrator"
	"mercator-hq/archivist/pkg/tasks"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the record cache",
}

var cacheVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check cached records against the primary store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCacheTask(cmd, orchestrator.ModeVerify)
	},
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Clear the record cache and reload it from the primary store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCacheTask(cmd, orchestrator.ModeReload)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheVerifyCmd, cacheRefreshCmd)
}

func runCacheTask(cmd *cobra.Command, mode string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		task, err := orchestrator.NewCacheRefreshTask(a.now(), mode, tasks.WithMaxRetries(a.cfg.Retry.MaxRetries))
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
	})
}
