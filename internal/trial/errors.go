package trial

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gistr/gistr/internal/lifecycle"
)

var (
	// ErrInvalidTransition is wrapped by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStale is returned when a reset happened while an operation was
	// waiting on I/O. The late result is discarded.
	ErrStale = errors.New("stale trial operation")

	// ErrNoSentence is returned when writing without a current sentence.
	ErrNoSentence = errors.New("no current sentence")

	// ErrTooShort is returned when a reformulation has too few tokens.
	ErrTooShort = errors.New("reformulation too short")
)

// TransitionError reports an event fired from a state that does not
// accept it. The trial is left unchanged.
type TransitionError struct {
	Event   Event
	From    State
	Unknown bool
}

func (e *TransitionError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("%v: unknown event %q", ErrInvalidTransition, e.Event)
	}
	return fmt.Sprintf("%v: %s from %s", ErrInvalidTransition, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// InvariantError reports a reconciliation that found the lifecycle cycle
// incomplete, with no route to progress, while mid-trial and without any
// info to explain it. A finished trial always produces an info in that
// situation, so this indicates a programming or data error rather than a
// recoverable failure.
type InvariantError struct {
	State State
	Cycle lifecycle.Cycle
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("trial invariant violated in %s: lifecycle %s incomplete (pending %s) with no info and no play route",
		e.State, e.Cycle.State, strings.Join(e.Cycle.Pending, ", "))
}
