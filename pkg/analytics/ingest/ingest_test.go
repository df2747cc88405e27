package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/analytics/storage"
	"optable/adscript/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func ingestConfig() *config.IngestConfig {
	return &config.IngestConfig{BatchSize: 2, SkipOlder: true}
}

func TestIngester_IngestFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl", `
{"id":"ev-1","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z","callerID":"optable"}
{"id":"ev-2","eventType":"script_settle","serverTimestamp":"2026-08-01T10:01:00Z","callerID":"optable"}
{"id":"ev-3","eventType":"script_load","serverTimestamp":"2026-08-01T10:02:00Z","callerID":"browsi"}
`)

	store := storage.NewMemoryStorage()
	ing := New(store, ingestConfig(), nil)

	summary, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile() failed: %v", err)
	}
	if summary.Stored != 3 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 3 stored", summary)
	}
	if store.Len() != 3 {
		t.Errorf("store holds %d events, want 3", store.Len())
	}
}

func TestIngester_MalformedLinesAreTolerated(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl", `
{"id":"ev-1","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}
this is not json
{"id":"ev-no-type","serverTimestamp":"2026-08-01T10:01:00Z"}
{"id":"ev-2","eventType":"script_load","serverTimestamp":"2026-08-01T10:02:00Z"}
`)

	store := storage.NewMemoryStorage()
	ing := New(store, ingestConfig(), nil)

	summary, err := ing.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile() failed: %v", err)
	}
	if summary.Stored != 2 {
		t.Errorf("stored = %d, want 2", summary.Stored)
	}
	if summary.Failed != 2 {
		t.Errorf("failed = %d, want 2", summary.Failed)
	}
}

func TestIngester_AssignsMissingIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl",
		`{"eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}`+"\n")

	store := storage.NewMemoryStorage()
	ing := New(store, ingestConfig(), nil)

	if _, err := ing.IngestFile(context.Background(), path); err != nil {
		t.Fatalf("IngestFile() failed: %v", err)
	}

	events, _ := store.Query(context.Background(), &analytics.Query{})
	if len(events) != 1 {
		t.Fatalf("stored %d events, want 1", len(events))
	}
	if events[0].ID == "" {
		t.Error("event without an ID was stored without assignment")
	}
}

// Re-ingesting the same file stores nothing new: every event sits at or
// before the stored high-water mark.
func TestIngester_ReingestIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl", `
{"id":"ev-1","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}
{"id":"ev-2","eventType":"script_load","serverTimestamp":"2026-08-01T10:01:00Z"}
`)

	store := storage.NewMemoryStorage()
	ing := New(store, ingestConfig(), nil)
	ctx := context.Background()

	if _, err := ing.IngestFile(ctx, path); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	summary, err := ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if summary.Stored != 0 || summary.Skipped != 2 {
		t.Errorf("second ingest summary = %+v, want all skipped", summary)
	}
	if store.Len() != 2 {
		t.Errorf("store holds %d events after re-ingest, want 2", store.Len())
	}
}

func TestIngester_CheckpointResume(t *testing.T) {
	dir := t.TempDir()
	content := `{"id":"ev-1","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}` + "\n" +
		`{"id":"ev-2","eventType":"script_load","serverTimestamp":"2026-08-01T10:01:00Z"}` + "\n"
	path := writeFile(t, dir, "events.jsonl", content)

	cs, err := OpenCheckpointStore(filepath.Join(dir, "checkpoint.db"))
	if err != nil {
		t.Fatalf("OpenCheckpointStore() failed: %v", err)
	}
	defer cs.Close()

	store := storage.NewMemoryStorage()
	cfg := &config.IngestConfig{BatchSize: 10, SkipOlder: false}
	ing := New(store, cfg, nil, WithCheckpoint(cs))
	ctx := context.Background()

	if _, err := ing.IngestFile(ctx, path); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	offset, err := cs.Offset(path)
	if err != nil {
		t.Fatalf("Offset() failed: %v", err)
	}
	if offset != int64(len(content)) {
		t.Errorf("checkpoint offset = %d, want %d", offset, len(content))
	}

	// Append a third event; a new run picks up only the tail, even with the
	// timestamp skip disabled.
	appended := `{"id":"ev-3","eventType":"script_load","serverTimestamp":"2026-08-01T10:02:00Z"}` + "\n"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to open for append: %v", err)
	}
	if _, err := f.WriteString(appended); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	f.Close()

	summary, err := ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("resumed ingest failed: %v", err)
	}
	if summary.Stored != 1 {
		t.Errorf("resumed ingest stored %d events, want 1", summary.Stored)
	}
	if store.Len() != 3 {
		t.Errorf("store holds %d events, want 3", store.Len())
	}
}

// A file whose last line has no trailing newline must checkpoint exactly at
// end of file, not one byte past it, or the first byte appended later is
// silently swallowed on resume.
func TestIngester_CheckpointWithoutTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	content := `{"id":"ev-1","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}`
	path := writeFile(t, dir, "events.jsonl", content)

	cs, err := OpenCheckpointStore(filepath.Join(dir, "checkpoint.db"))
	if err != nil {
		t.Fatalf("OpenCheckpointStore() failed: %v", err)
	}
	defer cs.Close()

	store := storage.NewMemoryStorage()
	cfg := &config.IngestConfig{BatchSize: 10, SkipOlder: false}
	ing := New(store, cfg, nil, WithCheckpoint(cs))
	ctx := context.Background()

	summary, err := ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if summary.Stored != 1 {
		t.Fatalf("stored = %d, want 1", summary.Stored)
	}

	offset, err := cs.Offset(path)
	if err != nil {
		t.Fatalf("Offset() failed: %v", err)
	}
	if offset != int64(len(content)) {
		t.Errorf("checkpoint offset = %d, want %d", offset, len(content))
	}

	// Complete the dangling line and append another event.
	appended := "\n" + `{"id":"ev-2","eventType":"script_load","serverTimestamp":"2026-08-01T10:01:00Z"}` + "\n"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to open for append: %v", err)
	}
	if _, err := f.WriteString(appended); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	f.Close()

	summary, err = ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("resumed ingest failed: %v", err)
	}
	if summary.Stored != 1 {
		t.Errorf("resumed ingest stored %d events, want 1", summary.Stored)
	}
	if store.Len() != 2 {
		t.Errorf("store holds %d events, want 2", store.Len())
	}
}

func TestIngester_IngestFiles(t *testing.T) {
	dir := t.TempDir()
	p1 := writeFile(t, dir, "a.jsonl",
		`{"id":"ev-1","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}`+"\n")
	p2 := writeFile(t, dir, "b.jsonl",
		`{"id":"ev-2","eventType":"script_load","serverTimestamp":"2026-08-01T10:01:00Z"}`+"\n")

	store := storage.NewMemoryStorage()
	ing := New(store, ingestConfig(), nil)

	summary, err := ing.IngestFiles(context.Background(), []string{p1, p2})
	if err != nil {
		t.Fatalf("IngestFiles() failed: %v", err)
	}
	if summary.Stored != 2 {
		t.Errorf("stored = %d, want 2", summary.Stored)
	}
}

func TestCheckpointStore_Roundtrip(t *testing.T) {
	cs, err := OpenCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.db"))
	if err != nil {
		t.Fatalf("OpenCheckpointStore() failed: %v", err)
	}
	defer cs.Close()

	offset, err := cs.Offset("/var/log/events.jsonl")
	if err != nil {
		t.Fatalf("Offset() failed: %v", err)
	}
	if offset != 0 {
		t.Errorf("unknown file offset = %d, want 0", offset)
	}

	if err := cs.SetOffset("/var/log/events.jsonl", 4096); err != nil {
		t.Fatalf("SetOffset() failed: %v", err)
	}
	if err := cs.SetOffset("/var/log/events.jsonl", 8192); err != nil {
		t.Fatalf("SetOffset() update failed: %v", err)
	}

	offset, _ = cs.Offset("/var/log/events.jsonl")
	if offset != 8192 {
		t.Errorf("offset = %d, want 8192", offset)
	}
}

func TestIngester_SkipOlderUsesStoredHighWaterMark(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()

	// Pre-existing data newer than half the file.
	store.Store(ctx, &analytics.Event{
		ID:         "existing",
		EventType:  "script_load",
		ServerTime: time.Date(2026, 8, 1, 10, 1, 0, 0, time.UTC),
	})

	dir := t.TempDir()
	path := writeFile(t, dir, "events.jsonl", `
{"id":"ev-old","eventType":"script_load","serverTimestamp":"2026-08-01T10:00:00Z"}
{"id":"ev-new","eventType":"script_load","serverTimestamp":"2026-08-01T10:02:00Z"}
`)

	ing := New(store, ingestConfig(), nil)
	summary, err := ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("IngestFile() failed: %v", err)
	}
	if summary.Stored != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 1 stored 1 skipped", summary)
	}
}
