package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"optable/adscript/pkg/analytics/ingest"
	"optable/adscript/pkg/analytics/storage"
)

var ingestFlags struct {
	batchSize    int
	noCheckpoint bool
	noSkip       bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest JSONL event files into the analytics store",
	Long: `Read one or more JSONL event files into the configured analytics store.

Events are inserted in batches. Re-running over the same files is safe:
events at or before the latest stored server timestamp are skipped, and a
checkpoint database records how far each file has been read so interrupted
runs resume.

Examples:
  # Ingest one file
  adscript ingest events-2026-08-30.jsonl

  # Ingest several files with a larger batch size
  adscript ingest --batch-size 5000 events-*.jsonl

  # Re-read files from the beginning, ignoring checkpoints
  adscript ingest --no-checkpoint events-2026-08-30.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntVar(&ingestFlags.batchSize, "batch-size", 0, "events per insert batch (overrides config)")
	ingestCmd.Flags().BoolVar(&ingestFlags.noCheckpoint, "no-checkpoint", false, "ignore and do not record file checkpoints")
	ingestCmd.Flags().BoolVar(&ingestFlags.noSkip, "no-skip", false, "do not skip events at or before the stored high-water mark")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	if ingestFlags.batchSize > 0 {
		cfg.Analytics.Ingest.BatchSize = ingestFlags.batchSize
	}
	if ingestFlags.noSkip {
		cfg.Analytics.Ingest.SkipOlder = false
	}

	store, err := storage.New(&cfg.Analytics.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	var opts []ingest.Option
	if !ingestFlags.noCheckpoint && cfg.Analytics.Ingest.CheckpointPath != "" {
		cs, err := ingest.OpenCheckpointStore(cfg.Analytics.Ingest.CheckpointPath)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint store: %w", err)
		}
		defer cs.Close()
		opts = append(opts, ingest.WithCheckpoint(cs))
	}

	ing := ingest.New(store, &cfg.Analytics.Ingest, nil, opts...)

	summary, err := ing.IngestFiles(context.Background(), args)
	if summary != nil {
		fmt.Printf("Stored:  %d\n", summary.Stored)
		fmt.Printf("Skipped: %d\n", summary.Skipped)
		fmt.Printf("Failed:  %d\n", summary.Failed)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}
