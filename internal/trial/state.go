package trial

// State is a trial state.
type State string

// Trial states.
const (
	StateInstructions      State = "instructions"
	StateReading           State = "task.reading"
	StateDistracting       State = "task.distracting"
	StateWritingUser       State = "task.writing.user"
	StateWritingProcessing State = "task.writing.processing"
	StateTimedOut          State = "task.timedout"
	StateInfo              State = "info"
	StateFailed            State = "failed"
)

// States lists every state, initial state first.
var States = []State{
	StateInstructions,
	StateReading,
	StateDistracting,
	StateWritingUser,
	StateWritingProcessing,
	StateTimedOut,
	StateInfo,
	StateFailed,
}

// Event is a trial event.
type Event string

// Trial events.
const (
	EventRead         Event = "task.read"
	EventDistract     Event = "task.distract"
	EventWriteUser    Event = "task.write.user"
	EventTimeout      Event = "task.timeout"
	EventWriteProcess Event = "task.write.process"
	EventInform       Event = "inform"
	EventReset        Event = "reset"
	EventFail         Event = "fail"
)

// Events lists every event.
var Events = []Event{
	EventRead,
	EventDistract,
	EventWriteUser,
	EventTimeout,
	EventWriteProcess,
	EventInform,
	EventReset,
	EventFail,
}

// transition is one row of the transition table. A nil From accepts any
// source state.
type transition struct {
	Event Event
	From  []State
	To    State
}

var transitionsTable = []transition{
	{Event: EventRead, From: []State{StateInstructions, StateWritingProcessing, StateTimedOut, StateInfo}, To: StateReading},
	{Event: EventDistract, From: []State{StateReading}, To: StateDistracting},
	{Event: EventWriteUser, From: []State{StateDistracting}, To: StateWritingUser},
	{Event: EventTimeout, From: []State{StateWritingUser}, To: StateTimedOut},
	{Event: EventWriteProcess, From: []State{StateWritingUser}, To: StateWritingProcessing},
	{Event: EventInform, From: []State{StateInstructions, StateWritingProcessing}, To: StateInfo},
	{Event: EventReset, To: StateInstructions},
	{Event: EventFail, To: StateFailed},
}

// transitionFor returns the target of ev from state from, or a
// *TransitionError when from is not a valid source.
func transitionFor(from State, ev Event) (State, error) {
	for _, tr := range transitionsTable {
		if tr.Event != ev {
			continue
		}
		if tr.From == nil {
			return tr.To, nil
		}
		for _, s := range tr.From {
			if s == from {
				return tr.To, nil
			}
		}
		return from, &TransitionError{Event: ev, From: from}
	}
	return from, &TransitionError{Event: ev, From: from, Unknown: true}
}

// CanFire reports whether ev is accepted from state s.
func CanFire(s State, ev Event) bool {
	_, err := transitionFor(s, ev)
	return err == nil
}
