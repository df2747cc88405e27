package metrics

import (
	"time"

	"optable/adscript/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics tracks analytics event ingestion.
//
// Metrics:
//   - adscript_ingest_events_total: Events ingested, by outcome
//   - adscript_ingest_batches_total: Batches inserted
//   - adscript_ingest_batch_duration_seconds: Batch insert latency
//   - adscript_events_received_total: Events received over HTTP, by type
type IngestMetrics struct {
	eventsTotal   *prometheus.CounterVec
	batchesTotal  prometheus.Counter
	batchDuration prometheus.Histogram
	receivedTotal *prometheus.CounterVec
}

// NewIngestMetrics creates and registers ingest metrics with the provided registry.
func NewIngestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IngestMetrics {
	im := &IngestMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ingest_events_total",
				Help:      "Total number of events processed by the ingester",
			},
			[]string{"outcome"},
		),

		batchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ingest_batches_total",
				Help:      "Total number of batches inserted into storage",
			},
		),

		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ingest_batch_duration_seconds",
				Help:      "Batch insert latency",
				Buckets:   prometheus.DefBuckets,
			},
		),

		receivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_received_total",
				Help:      "Total number of events received over HTTP",
			},
			[]string{"event_type"},
		),
	}

	registry.MustRegister(
		im.eventsTotal,
		im.batchesTotal,
		im.batchDuration,
		im.receivedTotal,
	)

	return im
}

// RecordIngested records ingested events.
// Outcome should be one of "stored", "skipped", "failed".
func (im *IngestMetrics) RecordIngested(outcome string, n int) {
	im.eventsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordBatch records one batch insert and its latency.
func (im *IngestMetrics) RecordBatch(d time.Duration) {
	im.batchesTotal.Inc()
	im.batchDuration.Observe(d.Seconds())
}

// RecordReceived records an event received over HTTP.
func (im *IngestMetrics) RecordReceived(eventType string) {
	im.receivedTotal.WithLabelValues(eventType).Inc()
}
