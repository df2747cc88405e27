// Package loader implements the external-resource load-once cache.
//
// A shared external script asset is fetched at most once per execution
// environment. All concurrent requesters of the same URL are served from a
// single in-flight load, and completion is replayed to callbacks registered
// before or after the load settles:
//
//   - at most one cache entry and one underlying fetch exist per
//     (environment, URL) pair
//   - callbacks registered while the load is pending fire exactly once, in
//     registration order, after the settle signal
//   - callbacks registered after settle fire synchronously, before the
//     registering call returns
//   - environments are fully isolated; the same URL loads independently in
//     each environment
//
// The settle signal is a single terminal notification: the cache does not
// distinguish a successful fetch from a failed one, and there is no retry,
// timeout, or eviction.
//
// # Usage
//
//	env := loader.NewHTTPEnvironment(&cfg.Loader, nil, logger)
//	svc := loader.NewService(gate, env, logger, collector.Loader())
//
//	h := svc.RequestLoad("https://cdn.example.com/rtd.js", "rtd", "optable",
//	    func() { /* runs after the script settles */ }, nil, nil)
//	if h == nil {
//	    // rejected: invalid input, policy denial, or unapproved caller
//	}
//
// Requests from callers outside the build-time approved set are rejected with
// a log entry; no error is raised to the caller.
package loader
