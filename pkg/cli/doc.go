/*
Package cli provides helpers shared by the archivist commands.

Output Formatting:

Results render as text, JSON or CSV. Values implementing Tabular render as
an aligned table in text mode and as rows in CSV mode:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, stats); err != nil {
		return err
	}

Progress Reporting:

Backfilling a date range reports one step per day:

	progress := cli.NewProgressReporter(os.Stderr, "days")
	progress.Start(int64(len(days)))
	for i, day := range days {
		// archive day
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
