package retention

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/analytics/storage"
	"optable/adscript/pkg/config"
)

func seedEvents(t *testing.T, store analytics.Storage, ages ...time.Duration) {
	t.Helper()
	now := time.Now().UTC()
	for i, age := range ages {
		err := store.Store(context.Background(), &analytics.Event{
			ID:         string(rune('a' + i)),
			EventType:  "script_load",
			ServerTime: now.Add(-age),
			CallerID:   "optable",
		})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestPruner_PruneByAge(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedEvents(t, store,
		120*24*time.Hour, // past retention
		100*24*time.Hour, // past retention
		10*24*time.Hour,  // retained
	)

	pruner := NewPruner(store, &config.RetentionConfig{RetentionDays: 90})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted %d, want 2", deleted)
	}

	count, _ := store.Count(context.Background(), &analytics.Query{})
	if count != 1 {
		t.Errorf("remaining count = %d, want 1", count)
	}
}

func TestPruner_ZeroRetentionKeepsForever(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedEvents(t, store, 1000*24*time.Hour)

	pruner := NewPruner(store, &config.RetentionConfig{RetentionDays: 0})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() deleted %d with retention disabled, want 0", deleted)
	}
}

func TestPruner_PruneByCount(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedEvents(t, store,
		5*time.Hour,
		4*time.Hour,
		3*time.Hour,
		2*time.Hour,
		time.Hour,
	)

	pruner := NewPruner(store, &config.RetentionConfig{MaxRecords: 3})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted %d, want 2", deleted)
	}

	// The newest events survive.
	remaining, _ := store.Query(context.Background(), &analytics.Query{SortOrder: "asc"})
	if len(remaining) != 3 {
		t.Fatalf("remaining = %d events, want 3", len(remaining))
	}
	if remaining[0].ID != "c" {
		t.Errorf("oldest surviving event = %s, want c", remaining[0].ID)
	}
}

func TestPruner_ArchiveBeforeDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedEvents(t, store, 120*24*time.Hour, time.Hour)

	archiveDir := t.TempDir()
	pruner := NewPruner(store, &config.RetentionConfig{
		RetentionDays:       90,
		ArchiveBeforeDelete: true,
		ArchivePath:         archiveDir,
	})

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("Prune() deleted %d, want 1", deleted)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("archive dir entries = %d (err %v), want 1 file", len(entries), err)
	}

	data, err := os.ReadFile(filepath.Join(archiveDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("failed to read archive: %v", err)
	}
	if !strings.Contains(string(data), `"script_load"`) {
		t.Error("archive does not contain the pruned event")
	}
}

func TestScheduler_EmptyScheduleIsNoop(t *testing.T) {
	store := storage.NewMemoryStorage()
	pruner := NewPruner(store, &config.RetentionConfig{RetentionDays: 90})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler running without a schedule")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	store := storage.NewMemoryStorage()
	pruner := NewPruner(store, &config.RetentionConfig{
		RetentionDays: 90,
		PruneSchedule: "not a cron expression",
	})

	if err := pruner.Start(context.Background()); err == nil {
		t.Fatal("Start() accepted an invalid cron expression")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := storage.NewMemoryStorage()
	pruner := NewPruner(store, &config.RetentionConfig{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !pruner.scheduler.IsRunning() {
		t.Error("scheduler not running after Start")
	}
	if pruner.NextPruning() == nil {
		t.Error("NextPruning() = nil for a scheduled pruner")
	}

	pruner.Stop()
	if pruner.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}
