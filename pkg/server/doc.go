// Package server provides the HTTP event logger server.
//
// Routes:
//
//   - POST /events: accept a JSON analytics event or a JSONL batch; each
//     event is stamped with the server time and client IP before storage
//   - GET /healthz: liveness probe
//   - GET /metrics: Prometheus metrics (when enabled)
//   - POST /load: prefetch an external script through the loader
//     service, subject to the policy gate and allow-list (when a loader
//     service is attached)
//
// Requests pass through panic recovery, request ID assignment, and
// structured request logging middleware. Shutdown is graceful with a
// configurable timeout.
package server
