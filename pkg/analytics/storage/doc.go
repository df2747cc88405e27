// Package storage provides storage backends for analytics events.
//
// The SQLite backend is the durable single-node store:
//
//   - WAL mode for concurrent reads and writes
//   - Busy timeout for handling locks
//   - Indexes on server_time, event_type, and caller_id
//   - Schema version tracked in the schema_version table
//
// The memory backend implements the same interface for tests.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&cfg.Analytics.Storage)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Store(ctx, event)
//
// All backends are safe for concurrent use.
package storage
