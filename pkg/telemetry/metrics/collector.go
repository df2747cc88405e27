package metrics

import (
	"optable/adscript/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector is the main orchestrator for all Prometheus metrics in adscript.
// It owns the registry and the per-concern metric groups, and provides a
// unified interface for recording metrics across components.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Loader metrics (load-once cache)
	loaderMetrics *LoaderMetrics

	// Ingest metrics (analytics ingestion)
	ingestMetrics *IngestMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created and
// the standard Go runtime and process collectors are registered on it.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "adscript"
	}

	return &Collector{
		config:        cfg,
		registry:      registry,
		loaderMetrics: NewLoaderMetrics(cfg, registry),
		ingestMetrics: NewIngestMetrics(cfg, registry),
	}
}

// Loader returns the loader metrics group.
func (c *Collector) Loader() *LoaderMetrics {
	return c.loaderMetrics
}

// Ingest returns the ingest metrics group.
func (c *Collector) Ingest() *IngestMetrics {
	return c.ingestMetrics
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
