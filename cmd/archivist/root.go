package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/cli"
)

const defaultConfigFile = "archivist.yaml"

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "archivist",
	Short: "Archivist - audit log archiving and retention",
	Long: `Archivist moves audit records from the primary store into compressed,
checksummed daily and monthly archives and enforces retention on both.

It runs either as a long-lived scheduler (archivist run) or as one-shot
maintenance commands for archiving, verification, search and cleanup.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, csv)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.NewConfigError("flags", err.Error())
	})
}
