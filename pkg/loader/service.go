package loader

import (
	"log/slog"

	"optable/adscript/pkg/policy"
	"optable/adscript/pkg/telemetry/metrics"
)

// Service is the caller-facing API of the load-once cache. It validates
// requests, consults the policy gate and the static allow-list, and delegates
// to the registry and loader.
//
// RequestLoad never blocks and never panics across the API boundary; all
// failures surface as a nil returned handle plus a log entry.
type Service struct {
	registry   *Registry
	loader     *Loader
	gate       policy.Gate
	defaultEnv Environment
	logger     *slog.Logger
	metrics    *metrics.LoaderMetrics
}

// NewService creates the caller-facing loader service.
//
// defaultEnv is used for requests that do not name an environment. The
// metrics group may be nil.
func NewService(gate policy.Gate, defaultEnv Environment, logger *slog.Logger, lm *metrics.LoaderMetrics) *Service {
	if gate == nil {
		gate = policy.AllowAll()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "loader.service")

	registry := NewRegistry(logger, lm)

	return &Service{
		registry:   registry,
		loader:     NewLoader(registry, logger, lm),
		gate:       gate,
		defaultEnv: defaultEnv,
		logger:     logger,
		metrics:    lm,
	}
}

// RequestLoad requests that the script at url be loaded into env on behalf of
// the identified caller.
//
// The returned handle is nil when validation, the policy gate, or the
// allow-list rejects the request; otherwise a handle is always returned, even
// though the load may not have completed yet. cb, when non-nil, is invoked
// exactly once after the resource settles; if the resource has already
// settled it is invoked synchronously before RequestLoad returns. Only the
// request that triggers the underlying load has its attrs applied; attrs on
// later requests for the same URL are ignored.
func (s *Service) RequestLoad(url, callerKind, callerID string, cb func(), env Environment, attrs map[string]string) Handle {
	if url == "" {
		s.logger.Error("load request rejected", "error", ErrMissingURL, "caller_id", callerID)
		s.recordRejection("validation")
		return nil
	}
	if callerID == "" {
		s.logger.Error("load request rejected", "error", ErrMissingCallerID, "url", url)
		s.recordRejection("validation")
		return nil
	}

	if !s.gate.Allowed(policy.ActionLoadExternalScript, policy.Identity{Kind: callerKind, ID: callerID}) {
		s.logger.Error("load request denied by policy",
			"url", url,
			"caller_kind", callerKind,
			"caller_id", callerID,
		)
		s.recordRejection("policy")
		return nil
	}

	if !IsApprovedCaller(callerID) {
		s.logger.Error("load request denied, caller not approved",
			"url", url,
			"caller_kind", callerKind,
			"caller_id", callerID,
		)
		s.recordRejection("allowlist")
		return nil
	}

	if env == nil {
		env = s.defaultEnv
	}

	entry, created := s.registry.GetOrCreate(env, url)

	// The callback is registered before the load is started so the
	// initiating caller's callback is first in the queue.
	if cb != nil {
		s.registry.EnqueueOrFire(entry, cb)
	}

	if created {
		if s.metrics != nil {
			s.metrics.RecordLoadStarted(callerKind)
		}
		if _, err := s.loader.start(env, url, attrs, entry); err != nil {
			// The entry stays pending; the failure is visible to this
			// caller only through the nil handle and the log.
			return nil
		}
	} else if s.metrics != nil {
		s.metrics.RecordCacheHit(callerKind)
	}

	return s.registry.HandleOf(entry)
}

// Registry returns the service's registry, exposing lookup and environment
// lifecycle operations.
func (s *Service) Registry() *Registry {
	return s.registry
}

// DefaultEnvironment returns the environment used for requests that do not
// name one.
func (s *Service) DefaultEnvironment() Environment {
	return s.defaultEnv
}

// ReleaseEnvironment drops all cache state held for env.
func (s *Service) ReleaseEnvironment(env Environment) {
	s.registry.ReleaseEnvironment(env)
}

func (s *Service) recordRejection(reason string) {
	if s.metrics != nil {
		s.metrics.RecordRejection(reason)
	}
}
