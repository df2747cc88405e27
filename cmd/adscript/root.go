package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "adscript",
	Short: "Adscript - load-once cache and analytics for external ad scripts",
	Long: `Adscript manages external ad vendor scripts: each approved script is
fetched at most once per environment, access is controlled by a policy
gate and a static allow-list, and load analytics flow through an HTTP
event logger into a SQLite-backed store.

It provides:
  - A policy-gated load-once script loader
  - An HTTP event logger for load analytics
  - JSONL event file ingestion with checkpointed resume
  - Scheduled retention pruning of stored events`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
