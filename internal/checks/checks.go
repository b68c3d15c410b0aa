// Package checks implements the freeze-then-check mechanism that turns
// incremental counter changes into one-shot notifications.
//
// A Check captures a snapshot of some value before an external mutation
// (Freeze) and later decides, from that snapshot and the current value,
// whether its named notification should fire (Check). Freezing before the
// mutation and comparing afterwards guarantees a name fires at most once
// per boundary crossing, even when the same state is polled repeatedly.
package checks

// Check is a named freeze/check predicate pair evaluated against an
// observation of type A.
type Check[A any] struct {
	// Name is the composite "<scope>:<category>:<label>" name.
	Name string

	// Freeze captures a snapshot before the mutation. The returned value is
	// opaque to the engine and handed back verbatim to Check.
	Freeze func(a A) any

	// Check reports whether the notification fires, given the frozen
	// snapshot and the current observation.
	Check func(frozen any, a A) bool
}

// Frozen maps check names to the snapshots captured by Freeze.
type Frozen map[string]any

// Freeze evaluates every check's Freeze function exactly once against a.
func Freeze[A any](checks []Check[A], a A) Frozen {
	frozen := make(Frozen, len(checks))
	for _, c := range checks {
		if c.Freeze == nil {
			frozen[c.Name] = nil
			continue
		}
		frozen[c.Name] = c.Freeze(a)
	}
	return frozen
}

// Evaluate runs every check's Check function exactly once with its own
// frozen snapshot and returns the names that fire, in registration order.
// A name registered twice is reported once.
func Evaluate[A any](frozen Frozen, checks []Check[A], a A) []string {
	var fired []string
	seen := make(map[string]bool, len(checks))
	for _, c := range checks {
		if c.Check == nil {
			continue
		}
		if !c.Check(frozen[c.Name], a) {
			continue
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		fired = append(fired, c.Name)
	}
	return fired
}
