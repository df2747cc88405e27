package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/analytics/storage"
)

var statsFlags struct {
	since    time.Duration
	callerID string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report stored event counts",
	Long: `Report event counts by type from the analytics store.

Examples:
  # Counts over all stored events
  adscript stats

  # Counts over the last 24 hours
  adscript stats --since 24h

  # Counts for one caller module
  adscript stats --caller optable`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().DurationVar(&statsFlags.since, "since", 0, "only count events newer than this age (e.g. 24h)")
	statsCmd.Flags().StringVar(&statsFlags.callerID, "caller", "", "only count events for this caller module")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	store, err := storage.New(&cfg.Analytics.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	query := &analytics.Query{CallerID: statsFlags.callerID}
	if statsFlags.since > 0 {
		start := time.Now().Add(-statsFlags.since)
		query.StartTime = &start
	}

	total, err := store.Count(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}

	counts, err := store.CountByType(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to aggregate events: %w", err)
	}

	latest, err := store.LatestServerTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest event time: %w", err)
	}

	fmt.Printf("Total events: %d\n", total)
	if !latest.IsZero() {
		fmt.Printf("Latest event: %s\n", latest.Format(time.RFC3339))
	}
	if len(counts) > 0 {
		fmt.Println("\nBy type:")
		for _, tc := range counts {
			fmt.Printf("  %-24s %d\n", tc.EventType, tc.Count)
		}
	}
	return nil
}
