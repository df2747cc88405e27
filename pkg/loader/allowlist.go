package loader

// approvedCallers is the fixed set of caller identifiers permitted to load
// external scripts. Membership is enumerated at build time; vendors are added
// through code review, never dynamically.
var approvedCallers = map[string]struct{}{
	"debugging":    {},
	"outstream":    {},
	"adagio":       {},
	"browsi":       {},
	"brandmetrics": {},
	"clean.io":     {},
	"geoedge":      {},
	"hadron":       {},
	"medianet":     {},
	"optable":      {},
}

// IsApprovedCaller reports whether a caller identifier is a member of the
// static approved-caller set.
func IsApprovedCaller(callerID string) bool {
	_, ok := approvedCallers[callerID]
	return ok
}

// ApprovedCallers returns the approved caller identifiers, for introspection.
func ApprovedCallers() []string {
	out := make([]string, 0, len(approvedCallers))
	for id := range approvedCallers {
		out = append(out, id)
	}
	return out
}
