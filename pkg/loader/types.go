package loader

// Handle is a reference to a resource object created and inserted by an
// Environment. A handle is created exactly once per (environment, URL) pair
// and never replaced.
type Handle interface {
	// URL returns the resource URL the handle was created for.
	URL() string
}

// Environment is an isolated execution environment (e.g., a page or frame)
// that owns inserted resources. The loader borrows environments from callers;
// it never manages their lifecycle, only associates cache state with them.
//
// The settle signal fires exactly once per resource object, on success or
// failure, undifferentiated.
type Environment interface {
	// CreateResource constructs a resource object for url and applies the
	// given attributes. It fails synchronously for malformed URLs or when
	// the environment cannot create the resource.
	CreateResource(url string, attrs map[string]string) (Handle, error)

	// InsertResource makes the resource visible within the environment.
	// Callers observe the handle from this point on, before any fetch
	// has completed.
	InsertResource(h Handle)

	// ObserveSettle registers fn to run when the resource settles.
	ObserveSettle(h Handle, fn func())

	// StartFetch initiates the actual fetch. Completion is always
	// asynchronous relative to this call.
	StartFetch(h Handle)
}

// State is the load state of a cache entry.
type State int

const (
	// StatePending means the underlying fetch has not settled yet.
	StatePending State = iota

	// StateLoaded means the settle signal has fired and callbacks have
	// been drained.
	StateLoaded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}
