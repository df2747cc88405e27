package loader

import (
	"log/slog"
	"sync"

	"optable/adscript/pkg/telemetry/metrics"
)

// Entry is the cache record for one URL within one environment. It tracks the
// load state, the resource handle, and the callbacks waiting for completion.
// Entry fields are guarded by the owning Registry's mutex.
type Entry struct {
	url       string
	state     State
	handle    Handle
	callbacks []func()
}

// Registry holds the per-environment load-once cache tables. Each environment
// owns an isolated url-to-entry map; a resource loaded in one environment has
// no effect on another. Tables are created on first use and dropped when the
// environment is released.
type Registry struct {
	mu      sync.Mutex
	envs    map[Environment]map[string]*Entry
	logger  *slog.Logger
	metrics *metrics.LoaderMetrics
}

// NewRegistry creates an empty registry. The metrics group may be nil.
func NewRegistry(logger *slog.Logger, lm *metrics.LoaderMetrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		envs:    make(map[Environment]map[string]*Entry),
		logger:  logger.With("component", "loader.registry"),
		metrics: lm,
	}
}

// Lookup returns the entry for (env, url) if one exists. It never creates.
func (r *Registry) Lookup(env Environment, url string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.envs[env]
	if !ok {
		return nil, false
	}
	e, ok := entries[url]
	return e, ok
}

// GetOrCreate returns the entry for (env, url), creating a pending entry if
// none exists. The returned created flag marks the caller responsible for
// starting the load.
func (r *Registry) GetOrCreate(env Environment, url string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.envs[env]
	if !ok {
		entries = make(map[string]*Entry)
		r.envs[env] = entries
	}

	if e, ok := entries[url]; ok {
		return e, false
	}

	e := &Entry{url: url, state: StatePending}
	entries[url] = e
	return e, true
}

// MarkLoaded transitions the entry for (env, url) to loaded and drains its
// callback queue in registration order. Calling it again is a no-op for
// firing purposes; the queue is drained exactly once.
func (r *Registry) MarkLoaded(env Environment, url string) {
	r.mu.Lock()
	entries, ok := r.envs[env]
	if !ok {
		r.mu.Unlock()
		return
	}
	e, ok := entries[url]
	if !ok || e.state == StateLoaded {
		r.mu.Unlock()
		return
	}
	e.state = StateLoaded
	drained := e.callbacks
	e.callbacks = nil
	r.mu.Unlock()

	// The drain runs synchronously, outside the lock so callbacks may
	// re-enter the registry. A callback registered for this URL during the
	// drain observes the loaded state and fires immediately.
	for _, cb := range drained {
		r.invoke(url, cb)
	}

	if r.metrics != nil && len(drained) > 0 {
		r.metrics.RecordCallbacksFired(len(drained))
	}
}

// EnqueueOrFire registers a completion callback on the entry. If the entry is
// already loaded the callback is invoked synchronously, before this call
// returns, and is not stored; otherwise it is appended to the queue.
func (r *Registry) EnqueueOrFire(e *Entry, cb func()) {
	if cb == nil {
		return
	}

	r.mu.Lock()
	if e.state == StatePending {
		e.callbacks = append(e.callbacks, cb)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.invoke(e.url, cb)
	if r.metrics != nil {
		r.metrics.RecordCallbacksFired(1)
	}
}

// HandleOf returns the entry's resource handle, which is nil until the
// initiating caller finishes synchronous resource creation.
func (r *Registry) HandleOf(e *Entry) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.handle
}

// StateOf returns the entry's current load state.
func (r *Registry) StateOf(e *Entry) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return e.state
}

// setHandle records the resource handle created by the initiating caller.
func (r *Registry) setHandle(e *Entry, h Handle) {
	r.mu.Lock()
	e.handle = h
	r.mu.Unlock()
}

// ReleaseEnvironment drops the environment's entry table. Call it when the
// environment is destroyed so the registry does not retain dead environments.
func (r *Registry) ReleaseEnvironment(env Environment) {
	r.mu.Lock()
	entries, ok := r.envs[env]
	if ok {
		delete(r.envs, env)
	}
	r.mu.Unlock()

	if ok && r.metrics != nil {
		r.metrics.RecordEnvironmentReleased(len(entries))
	}
}

// EntryCount returns the number of entries held for the environment.
func (r *Registry) EntryCount(env Environment) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envs[env])
}

// invoke runs a callback, recovering from panics so one failing callback
// never aborts the drain of the remaining queue.
func (r *Registry) invoke(url string, cb func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("completion callback panicked",
				"url", url,
				"panic", rec,
			)
		}
	}()
	cb()
}
