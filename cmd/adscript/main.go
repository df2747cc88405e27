// Adscript is a load-once cache and analytics pipeline for external ad
// vendor scripts.
//
// It provides:
//   - A loader service that fetches each approved external script at most
//     once per environment, with policy-gated access control
//   - An HTTP event logger that receives load analytics events
//   - JSONL ingestion into a SQLite-backed analytics store
//   - Scheduled retention pruning
//
// Usage:
//
//	# Start the event logger server with default configuration
//	adscript run
//
//	# Start with a custom configuration file
//	adscript run --config /etc/adscript/config.yaml
//
//	# Ingest JSONL event files
//	adscript ingest events-2026-08-29.jsonl events-2026-08-30.jsonl
//
//	# Report stored event counts
//	adscript stats
//
//	# Validate configuration and policy rules
//	adscript validate
//
//	# Show version information
//	adscript version
package main

func main() {
	Execute()
}
