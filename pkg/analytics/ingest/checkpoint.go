package ingest

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// CheckpointStore records per-file byte offsets so a re-run of the ingester
// resumes where the previous run stopped instead of re-reading whole files.
//
// It is a separate, tiny database from the analytics store; losing it is
// harmless because ingestion is idempotent on server timestamps.
type CheckpointStore struct {
	db *sql.DB
}

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS ingest_offsets (
    path TEXT PRIMARY KEY,
    offset INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// OpenCheckpointStore opens (creating if needed) the checkpoint database.
func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(checkpointSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint schema: %w", err)
	}

	return &CheckpointStore{db: db}, nil
}

// Offset returns the stored byte offset for a file, or 0 when none exists.
func (c *CheckpointStore) Offset(path string) (int64, error) {
	var offset int64
	err := c.db.QueryRow("SELECT offset FROM ingest_offsets WHERE path = ?", path).Scan(&offset)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint for %s: %w", path, err)
	}
	return offset, nil
}

// SetOffset records the byte offset consumed from a file.
func (c *CheckpointStore) SetOffset(path string, offset int64) error {
	_, err := c.db.Exec(`
		INSERT INTO ingest_offsets (path, offset, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET offset = excluded.offset, updated_at = CURRENT_TIMESTAMP
	`, path, offset)
	if err != nil {
		return fmt.Errorf("failed to write checkpoint for %s: %w", path, err)
	}
	return nil
}

// Close closes the checkpoint database.
func (c *CheckpointStore) Close() error {
	return c.db.Close()
}
