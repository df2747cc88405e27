package metrics

import (
	"time"

	"optable/adscript/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LoaderMetrics tracks load-once cache performance.
//
// Metrics:
//   - adscript_loader_loads_total: Loads started, by caller kind
//   - adscript_loader_cache_hits_total: Requests served from an existing entry
//   - adscript_loader_rejections_total: Rejected requests, by reason
//   - adscript_loader_callbacks_fired_total: Completion callbacks invoked
//   - adscript_loader_entries: Current number of cache entries
//   - adscript_loader_settle_duration_seconds: Time from load start to settle
type LoaderMetrics struct {
	// Loads started (one per underlying fetch)
	loadsTotal *prometheus.CounterVec

	// Requests that joined an existing entry
	cacheHitsTotal *prometheus.CounterVec

	// Rejected requests by reason (validation, policy, allowlist)
	rejectionsTotal *prometheus.CounterVec

	// Completion callbacks invoked
	callbacksFiredTotal prometheus.Counter

	// Current number of cache entries across environments
	entries prometheus.Gauge

	// Time from load start to settle signal
	settleDuration prometheus.Histogram
}

// NewLoaderMetrics creates and registers loader metrics with the provided registry.
func NewLoaderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LoaderMetrics {
	lm := &LoaderMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loader_loads_total",
				Help:      "Total number of external script loads started",
			},
			[]string{"caller_kind"},
		),

		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loader_cache_hits_total",
				Help:      "Total number of requests served from an existing cache entry",
			},
			[]string{"caller_kind"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loader_rejections_total",
				Help:      "Total number of rejected load requests",
			},
			[]string{"reason"},
		),

		callbacksFiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loader_callbacks_fired_total",
				Help:      "Total number of completion callbacks invoked",
			},
		),

		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loader_entries",
				Help:      "Current number of cache entries across environments",
			},
		),

		settleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loader_settle_duration_seconds",
				Help:      "Time from load start to settle signal",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}

	registry.MustRegister(
		lm.loadsTotal,
		lm.cacheHitsTotal,
		lm.rejectionsTotal,
		lm.callbacksFiredTotal,
		lm.entries,
		lm.settleDuration,
	)

	return lm
}

// RecordLoadStarted records a new underlying fetch.
func (lm *LoaderMetrics) RecordLoadStarted(callerKind string) {
	lm.loadsTotal.WithLabelValues(callerKind).Inc()
	lm.entries.Inc()
}

// RecordCacheHit records a request that joined an existing entry.
func (lm *LoaderMetrics) RecordCacheHit(callerKind string) {
	lm.cacheHitsTotal.WithLabelValues(callerKind).Inc()
}

// RecordRejection records a rejected request.
// Reason should be one of "validation", "policy", "allowlist".
func (lm *LoaderMetrics) RecordRejection(reason string) {
	lm.rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordCallbacksFired records completion callbacks invoked during a drain.
func (lm *LoaderMetrics) RecordCallbacksFired(n int) {
	lm.callbacksFiredTotal.Add(float64(n))
}

// RecordSettle records the time from load start to settle.
func (lm *LoaderMetrics) RecordSettle(d time.Duration) {
	lm.settleDuration.Observe(d.Seconds())
}

// RecordEnvironmentReleased records removal of an environment's entries.
func (lm *LoaderMetrics) RecordEnvironmentReleased(entryCount int) {
	lm.entries.Sub(float64(entryCount))
}
