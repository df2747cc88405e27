package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/config"
	"optable/adscript/pkg/telemetry/metrics"
	"optable/adscript/pkg/telemetry/tracing"
)

// Ingester reads JSONL event files into a storage backend.
//
// Ingestion is tolerant and idempotent: a malformed line is logged and
// skipped rather than aborting the file, events at or before the latest
// stored server timestamp are skipped on re-ingestion, and a checkpoint
// store (when configured) lets a re-run resume from the previous offset.
type Ingester struct {
	store      analytics.Storage
	checkpoint *CheckpointStore
	config     *config.IngestConfig
	logger     *slog.Logger
	metrics    *metrics.IngestMetrics
	tracer     *tracing.Tracer
}

// Summary reports the outcome of ingesting one file.
type Summary struct {
	Stored  int   // Events inserted
	Skipped int   // Events at or before the stored high-water mark
	Failed  int   // Lines that could not be parsed or validated
	Bytes   int64 // Bytes consumed from the file
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithCheckpoint attaches a checkpoint store for resumable ingestion.
func WithCheckpoint(cs *CheckpointStore) Option {
	return func(i *Ingester) { i.checkpoint = cs }
}

// WithMetrics attaches the ingest metrics group.
func WithMetrics(im *metrics.IngestMetrics) Option {
	return func(i *Ingester) { i.metrics = im }
}

// WithTracer attaches a tracer; batch inserts run under a span.
func WithTracer(tr *tracing.Tracer) Option {
	return func(i *Ingester) { i.tracer = tr }
}

// New creates an ingester writing to store.
func New(store analytics.Storage, cfg *config.IngestConfig, logger *slog.Logger, opts ...Option) *Ingester {
	if cfg == nil {
		defaults := config.NewDefaultConfig()
		cfg = &defaults.Analytics.Ingest
	}
	if logger == nil {
		logger = slog.Default()
	}

	ing := &Ingester{
		store:  store,
		config: cfg,
		logger: logger.With("component", "analytics.ingest"),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile reads one JSONL file into storage. It resumes from the
// checkpointed offset when a checkpoint store is attached, and advances the
// checkpoint after every committed batch.
func (i *Ingester) IngestFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var offset int64
	if i.checkpoint != nil {
		offset, err = i.checkpoint.Offset(path)
		if err != nil {
			return nil, err
		}
		if offset > 0 {
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return nil, fmt.Errorf("failed to seek %s to %d: %w", path, offset, err)
			}
			i.logger.Info("resuming ingest", "path", path, "offset", offset)
		}
	}

	// High-water mark for idempotent re-ingestion.
	var latest time.Time
	if i.config.SkipOlder {
		latest, err = i.store.LatestServerTime(ctx)
		if err != nil {
			return nil, err
		}
	}

	batchSize := i.config.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	summary := &Summary{Bytes: offset}
	batch := make([]*analytics.Event, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := i.storeBatch(ctx, path, batch); err != nil {
			return err
		}
		summary.Stored += len(batch)
		batch = batch[:0]

		if i.checkpoint != nil {
			if err := i.checkpoint.SetOffset(path, summary.Bytes); err != nil {
				return err
			}
		}
		return nil
	}

	reader := bufio.NewReaderSize(f, 64*1024)

	for {
		line, readErr := reader.ReadBytes('\n')
		// The returned slice includes the separator when one was read, so
		// this is the exact number of bytes consumed. A final line without
		// a trailing newline must not checkpoint past end of file.
		summary.Bytes += int64(len(line))

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			event, err := analytics.ParseLine(trimmed)
			if err == nil {
				err = event.Validate()
			}
			switch {
			case err != nil:
				summary.Failed++
				i.recordIngested("failed", 1)
				i.logger.Warn("skipping malformed line", "path", path, "error", err)

			case i.config.SkipOlder && !latest.IsZero() && !event.ServerTime.After(latest):
				summary.Skipped++
				i.recordIngested("skipped", 1)

			default:
				if event.ID == "" {
					event.ID = uuid.NewString()
				}
				batch = append(batch, event)
				if len(batch) >= batchSize {
					if err := flush(); err != nil {
						return summary, err
					}
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return summary, fmt.Errorf("failed to read %s: %w", path, readErr)
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}

	i.logger.Info("file ingested",
		"path", path,
		"stored", summary.Stored,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

// IngestFiles ingests multiple files in order, accumulating one summary.
// The first file error stops the run.
func (i *Ingester) IngestFiles(ctx context.Context, paths []string) (*Summary, error) {
	total := &Summary{}
	for _, path := range paths {
		s, err := i.IngestFile(ctx, path)
		if s != nil {
			total.Stored += s.Stored
			total.Skipped += s.Skipped
			total.Failed += s.Failed
			total.Bytes += s.Bytes
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (i *Ingester) storeBatch(ctx context.Context, path string, batch []*analytics.Event) error {
	start := time.Now()
	var err error
	if i.tracer != nil {
		spanCtx, span := i.tracer.Start(ctx, "ingest.batch",
			attribute.String("file", path),
			attribute.Int("batch_size", len(batch)),
		)
		err = i.store.StoreBatch(spanCtx, batch)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	} else {
		err = i.store.StoreBatch(ctx, batch)
	}

	if err != nil {
		i.recordIngested("failed", len(batch))
		return err
	}

	i.recordIngested("stored", len(batch))
	if i.metrics != nil {
		i.metrics.RecordBatch(time.Since(start))
	}
	return nil
}

func (i *Ingester) recordIngested(outcome string, n int) {
	if i.metrics != nil {
		i.metrics.RecordIngested(outcome, n)
	}
}
