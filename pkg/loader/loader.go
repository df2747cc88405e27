package loader

import (
	"log/slog"
	"time"

	"optable/adscript/pkg/telemetry/metrics"
)

// Loader performs the environment-side work of a load: resource creation,
// insertion, settle observation, and fetch initiation. All cache bookkeeping
// lives in the Registry.
type Loader struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *metrics.LoaderMetrics
}

// NewLoader creates a loader backed by the given registry.
func NewLoader(registry *Registry, logger *slog.Logger, lm *metrics.LoaderMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		registry: registry,
		logger:   logger.With("component", "loader"),
		metrics:  lm,
	}
}

// load returns the handle for (env, url), beginning a new load only when no
// entry exists yet. For an existing entry no new fetch is performed and the
// existing handle is returned; it is nil if the initiating caller has not yet
// completed synchronous resource creation.
func (l *Loader) load(env Environment, url string, attrs map[string]string) (Handle, error) {
	entry, created := l.registry.GetOrCreate(env, url)
	if !created {
		return l.registry.HandleOf(entry), nil
	}
	return l.start(env, url, attrs, entry)
}

// start creates and inserts the resource for a freshly created entry, arms
// the settle observer, and initiates the fetch. Attributes are applied here,
// exactly once, by the request that won entry creation; later requests for
// the same URL never reach this path.
//
// A synchronous creation failure is returned to the initiating caller only.
// The entry stays pending with a nil handle and its callbacks never fire;
// callers that joined the entry are not separately notified.
func (l *Loader) start(env Environment, url string, attrs map[string]string, entry *Entry) (Handle, error) {
	h, err := env.CreateResource(url, attrs)
	if err != nil {
		l.logger.Error("failed to create resource", "url", url, "error", err)
		return nil, &ResourceError{URL: url, Err: err}
	}

	l.registry.setHandle(entry, h)
	env.InsertResource(h)

	startedAt := time.Now()
	env.ObserveSettle(h, func() {
		if l.metrics != nil {
			l.metrics.RecordSettle(time.Since(startedAt))
		}
		l.registry.MarkLoaded(env, url)
	})

	env.StartFetch(h)

	l.logger.Debug("load started", "url", url)
	return h, nil
}
