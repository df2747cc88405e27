package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/config"
)

// Pruner enforces retention policy on stored analytics events.
type Pruner struct {
	storage   analytics.Storage
	config    *config.RetentionConfig
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner.
func NewPruner(storage analytics.Storage, cfg *config.RetentionConfig) *Pruner {
	if cfg == nil {
		defaults := config.NewDefaultConfig()
		cfg = &defaults.Analytics.Retention
	}

	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "analytics.retention"),
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes events older than the retention period or exceeding the max
// record count. Both phases can run together. Returns the total number of
// events deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("event pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByAge deletes events older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	query := &analytics.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		if err := p.archive(ctx, query); err != nil {
			return 0, err
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		p.logger.Info("pruned events by age",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}

// pruneByCount deletes the oldest events when the total exceeds MaxRecords.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &analytics.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords

	// Oldest first; the cutoff is the last event to delete.
	oldest, err := p.storage.Query(ctx, &analytics.Query{
		SortBy:    "server_time",
		SortOrder: "asc",
		Limit:     int(toDelete),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query oldest events: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].ServerTime
	deleteQuery := &analytics.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveEvents(oldest); err != nil {
			return 0, err
		}
	}

	deleted, err := p.storage.Delete(ctx, deleteQuery)
	if err != nil {
		return 0, err
	}

	p.logger.Info("pruned events by count",
		"deleted_count", deleted,
		"max_records", p.config.MaxRecords,
	)
	return deleted, nil
}

// archive writes the events matching query to a JSONL archive file before
// they are deleted.
func (p *Pruner) archive(ctx context.Context, query *analytics.Query) error {
	// The default query limit would truncate the archive.
	q := *query
	q.Limit = int(^uint(0) >> 1)

	events, err := p.storage.Query(ctx, &q)
	if err != nil {
		return fmt.Errorf("failed to query events for archiving: %w", err)
	}
	return p.archiveEvents(events)
}

func (p *Pruner) archiveEvents(events []*analytics.Event) error {
	if len(events) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	archiveFile := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("events-%s.jsonl", time.Now().Format("2006-01-02-150405")))
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := analytics.WriteJSONL(f, events); err != nil {
		return fmt.Errorf("failed to archive events: %w", err)
	}

	p.logger.Info("events archived",
		"archive_file", archiveFile,
		"event_count", len(events),
	)
	return nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
