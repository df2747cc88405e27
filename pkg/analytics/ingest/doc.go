// Package ingest reads JSONL analytics event files into a storage backend.
//
// Events are inserted in batches (default 1000). Ingestion is idempotent:
// events at or before the latest stored server timestamp are skipped, so
// re-running over the same files does not duplicate data. Events arriving
// without an ID are assigned a UUID. Malformed lines are logged and skipped.
//
// An optional checkpoint store records the byte offset consumed from each
// file so interrupted runs resume instead of rescanning.
package ingest
