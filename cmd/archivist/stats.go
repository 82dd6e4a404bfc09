package main

import (
	"context"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	Long: `Show the number of daily archive files, the records and bytes they hold,
the estimated compression ratio and the number of records still in the
primary store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			stats, err := a.service.ArchiveStatistics(ctx)
			if err != nil {
				return err
			}
			primary, err := a.service.CountLogs(ctx, nil)
			if err != nil {
				return err
			}
			return render(cmd, statsView{Archive: stats, PrimaryRecords: primary})
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
