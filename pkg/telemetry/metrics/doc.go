// Package metrics provides Prometheus metrics collection for adscript.
//
// The Collector owns a Prometheus registry and groups metrics by concern:
//
//   - LoaderMetrics: load-once cache activity (loads started, cache hits,
//     rejections, callback fan-out, settle latency)
//   - IngestMetrics: analytics ingestion (events processed, batch latency,
//     events received over HTTP)
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.Loader().RecordLoadStarted("rtd")
//	http.Handle("/metrics", collector.Handler())
package metrics
