package policy

// Action identifies a kind of privileged operation a caller may attempt.
type Action string

const (
	// ActionLoadExternalScript is the action of loading third-party script
	// code into an execution environment.
	ActionLoadExternalScript Action = "LOAD_EXTERNAL_SCRIPT"
)

// Identity describes the caller requesting an action.
type Identity struct {
	// Kind is the caller's module kind (e.g., "rtd", "analytics", "core").
	Kind string

	// ID is the caller's module code (e.g., "optable", "debugging").
	ID string
}

// Gate decides whether a caller may perform an action.
//
// Implementations must be pure predicates: a false return means the action is
// denied and the caller performs no side effects on behalf of the request.
type Gate interface {
	Allowed(action Action, id Identity) bool
}

// GateFunc adapts a plain function to the Gate interface.
type GateFunc func(action Action, id Identity) bool

// Allowed implements Gate.
func (f GateFunc) Allowed(action Action, id Identity) bool {
	return f(action, id)
}

// AllowAll returns a gate that permits every action. Intended for tests and
// for deployments that rely solely on the loader's static allow-list.
func AllowAll() Gate {
	return GateFunc(func(Action, Identity) bool { return true })
}
