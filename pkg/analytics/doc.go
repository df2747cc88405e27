// Package analytics provides the event model and storage contract for the
// load analytics pipeline: events emitted around external-script loading are
// received over HTTP or ingested from JSONL files, persisted through the
// Storage interface, and pruned by the retention scheduler.
//
// # Event Model
//
// Each event carries:
//   - An ID (UUID v4, assigned on receipt when absent)
//   - An event type ("script_load", "script_settle", "script_rejected",
//     or vendor-defined types)
//   - A server timestamp stamped on receipt, plus the submitter's own
//     timestamp when provided
//   - The submitting client's IP, the caller module, and the script URL
//   - A free-form vendor payload map
//
// # Storage Backends
//
// Two Storage implementations live in the storage subpackage:
//
//   - SQLite: durable single-node storage (WAL mode, busy timeout,
//     versioned schema)
//   - Memory: in-memory storage for tests
//
// The ingest subpackage reads JSONL event files into a Storage in batches;
// the retention subpackage deletes events past their retention age on a cron
// schedule.
package analytics
