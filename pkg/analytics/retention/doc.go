// Package retention enforces retention policy on stored analytics events.
//
// The Pruner deletes events in two phases: age-based (older than
// retention_days) and count-based (oldest events beyond max_records). Events
// can be archived to JSONL files before deletion. The Scheduler runs the
// pruner on a cron expression.
package retention
