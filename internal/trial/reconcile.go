package trial

import (
	"context"
	"fmt"
	"time"

	"github.com/gistr/gistr/internal/checks"
	"github.com/gistr/gistr/internal/lifecycle"
)

// Decision is the outcome of a reconciliation.
type Decision int

const (
	// DecisionStay leaves the trial where it is.
	DecisionStay Decision = iota
	// DecisionInform moves the trial to info.
	DecisionInform
	// DecisionRead starts the next trial.
	DecisionRead
)

func (d Decision) String() string {
	switch d {
	case DecisionInform:
		return "inform"
	case DecisionRead:
		return "read"
	default:
		return "stay"
	}
}

// LoadInfos reconciles the trial with the player's lifecycle: it freezes
// the info checks, reloads the profile, steps the lifecycle up if its
// cycle is complete (reloading again so availability is counted in the
// new stage's bucket), records the infos that fired and applies the first
// matching decision:
//
//  1. some info is pending: inform
//  2. the cycle is incomplete and playing cannot progress it: inform
//  3. no material is left for the player: inform
//  4. in instructions: read
//  5. otherwise stay
//
// Case 2 outside instructions is an inconsistency reported as an
// *InvariantError without any transition.
func (t *Trial) LoadInfos(ctx context.Context) (Decision, error) {
	t.mu.Lock()
	gen := t.generation
	t.mu.Unlock()
	frozen, stage := t.freeze()
	return t.reconcile(ctx, gen, frozen, stage)
}

// freeze snapshots the info checks against the current in-memory state
// and returns the lifecycle stage they were frozen in.
func (t *Trial) freeze() (checks.Frozen, string) {
	stage := t.deps.Lifecycle.CurrentState()
	obs := t.observe(t.deps.Lifecycle.ValidateState())
	return checks.Freeze(t.checks, obs), stage
}

func (t *Trial) observe(cycle lifecycle.Cycle) Observation {
	return Observation{
		Cycle:   cycle,
		Streak:  t.Streak(),
		Profile: t.deps.Profile.Profile(),
	}
}

func (t *Trial) reconcile(ctx context.Context, gen uint64, frozen checks.Frozen, stage string) (d Decision, err error) {
	start := time.Now()
	defer func() {
		label := d.String()
		if err != nil {
			label = "error"
		}
		t.metrics.Reconciliation(label, time.Since(start).Seconds())
	}()

	if err := t.deps.Profile.Reload(ctx); err != nil {
		return DecisionStay, fmt.Errorf("reload profile: %w", err)
	}
	if t.stale(gen) {
		return DecisionStay, ErrStale
	}

	cycle := t.deps.Lifecycle.ValidateState()
	if cycle.IsComplete {
		before := t.deps.Lifecycle.CurrentState()
		if err := t.deps.Lifecycle.TransitionUp(ctx); err != nil {
			return DecisionStay, fmt.Errorf("transition lifecycle up: %w", err)
		}
		// Availability was counted in the bucket of the previous stage.
		if t.deps.Lifecycle.CurrentState() != before {
			if err := t.deps.Profile.Reload(ctx); err != nil {
				return DecisionStay, fmt.Errorf("reload profile after transition: %w", err)
			}
			if t.stale(gen) {
				return DecisionStay, ErrStale
			}
		}
	}

	// Checks see the cycle of the stage they were frozen in.
	fired := t.inScope(checks.Evaluate(frozen, t.checks, t.observe(cycle)), stage)

	after := t.deps.Lifecycle.ValidateState()
	profile := t.deps.Profile.Profile()

	t.mu.Lock()
	if t.generation != gen {
		t.mu.Unlock()
		return DecisionStay, ErrStale
	}
	added := t.infos.Add(fired...)
	state := t.state
	pending := t.infos.Len()
	t.mu.Unlock()

	if len(added) > 0 {
		t.metrics.Infos(added...)
		t.logger.Info("infos fired", "infos", added, "stage", stage)
	}

	switch {
	case pending > 0:
		d = DecisionInform
	case !after.IsComplete && !after.CanProgressFrom(lifecycle.RoutePlay):
		if state != StateInstructions {
			inv := &InvariantError{State: state, Cycle: after}
			t.logger.Error("trial invariant violated", "error", inv)
			return DecisionStay, inv
		}
		d = DecisionInform
	case profile.AvailableTreesBucket == 0:
		d = DecisionInform
	case state == StateInstructions:
		d = DecisionRead
	default:
		d = DecisionStay
	}

	switch d {
	case DecisionInform:
		err = t.fire(ctx, EventInform, gen)
	case DecisionRead:
		err = t.read(ctx, gen)
	}
	return d, err
}

// inScope keeps the fired names scoped to stage. Lifecycle names are
// further restricted to players past registration.
func (t *Trial) inScope(fired []string, stage string) []string {
	var out []string
	for _, name := range fired {
		n, err := checks.ParseName(name)
		if err != nil {
			t.logger.Warn("malformed info name", "name", name, "error", err)
			continue
		}
		if n.Scope != stage {
			continue
		}
		if n.Category == checks.CategoryLifecycle && !t.deps.Lifecycle.IsAtOrAfter(lifecycle.StateExpTraining) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (t *Trial) stale(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation != gen
}
