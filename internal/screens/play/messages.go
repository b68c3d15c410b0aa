package play

import (
	"time"

	"github.com/gistr/gistr/internal/trial"
)

// reconciledMsg is sent when LoadInfos or ProcessWriting returns.
type reconciledMsg struct {
	Decision trial.Decision
	Err      error
}

// readMsg is sent when sampling the next sentence returns.
type readMsg struct {
	Err error
}

// tickMsg drives the countdown of the current stage. Gen identifies the
// countdown it belongs to; ticks of an abandoned countdown are dropped.
type tickMsg struct {
	Gen  int
	Time time.Time
}
