package play

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/gistr/gistr/internal/game"
	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/router"
	"github.com/gistr/gistr/internal/sampling"
	"github.com/gistr/gistr/internal/screen"
	"github.com/gistr/gistr/internal/screens/profile"
	"github.com/gistr/gistr/internal/trial"
	"github.com/gistr/gistr/internal/ui/components"
	"github.com/gistr/gistr/internal/ui/layout"
)

const tickInterval = 250 * time.Millisecond

// PlayScreen drives one trial: it runs the countdowns of the reading,
// distraction and writing stages and turns key presses into trial events.
type PlayScreen struct {
	session *game.Session
	trial   *trial.Trial
	logger  *slog.Logger

	countdown components.Countdown
	tickGen   int
	editor    components.Editor
	busy      bool
	errMsg    string
	fatal     error
	width     int
}

var _ screen.Screen = (*PlayScreen)(nil)
var _ screen.KeyHintProvider = (*PlayScreen)(nil)
var _ screen.StatusProvider = (*PlayScreen)(nil)
var _ screen.Capturing = (*PlayScreen)(nil)

// New creates a PlayScreen over session.
func New(session *game.Session, logger *slog.Logger) *PlayScreen {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayScreen{
		session: session,
		trial:   session.Trial,
		logger:  logger,
		width:   60,
	}
}

// Init reconciles a fresh trial. A trial resumed after another screen
// closed only refreshes the profile.
func (s *PlayScreen) Init() tea.Cmd {
	if s.trial.State() == trial.StateInstructions {
		return s.loadInfos()
	}
	if err := s.session.Profile.Reload(context.Background()); err != nil {
		s.errMsg = err.Error()
	}
	return nil
}

func (s *PlayScreen) Title() string {
	return "Play"
}

func (s *PlayScreen) Status() layout.Status {
	p := s.session.Profile.Profile()
	return layout.Status{
		Profile: p.Name,
		Stage:   p.LifecycleState,
		Streak:  s.trial.Streak(),
		Credit:  p.SuggestionCredit,
	}
}

// CapturesKeys keeps esc and q for the editor while writing.
func (s *PlayScreen) CapturesKeys() bool {
	return s.trial.State() == trial.StateWritingUser
}

func (s *PlayScreen) KeyHints() []layout.KeyHint {
	reset := layout.KeyHint{Key: "Ctrl+R", Description: "Reset"}
	switch s.trial.State() {
	case trial.StateWritingUser:
		return []layout.KeyHint{{Key: "Enter", Description: "Submit"}, reset}
	case trial.StateReading, trial.StateDistracting:
		return []layout.KeyHint{reset, {Key: "Esc", Description: "Back"}}
	case trial.StateFailed:
		return []layout.KeyHint{reset, {Key: "Esc", Description: "Back"}}
	case trial.StateInfo:
		if s.blocked() {
			return []layout.KeyHint{{Key: "P", Description: "Profile"}, reset, {Key: "Esc", Description: "Back"}}
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "P", Description: "Profile"},
		reset,
		{Key: "Esc", Description: "Back"},
	}
}

func (s *PlayScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = min(msg.Width-8, 100)
		s.countdown.Width = s.width
		if s.trial.State() == trial.StateWritingUser {
			s.editor.SetWidth(s.width)
		}
		return s, nil

	case reconciledMsg:
		return s.handleReconciled(msg)

	case readMsg:
		return s.handleRead(msg)

	case tickMsg:
		return s.handleTick(msg)

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	if s.trial.State() == trial.StateWritingUser && !s.busy {
		var cmd tea.Cmd
		s.editor, cmd = s.editor.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *PlayScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+r" {
		return s.reset()
	}
	if s.busy {
		return s, nil
	}

	state := s.trial.State()
	if state == trial.StateWritingUser {
		if key == "enter" {
			return s.submit()
		}
		var cmd tea.Cmd
		s.editor, cmd = s.editor.Update(msg)
		return s, cmd
	}

	switch key {
	case "esc", "q":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "p", "P":
		if state != trial.StateFailed {
			return s, s.openProfile()
		}
	case "enter":
		switch state {
		case trial.StateInstructions:
			return s, s.loadInfos()
		case trial.StateWritingProcessing, trial.StateTimedOut:
			return s, s.read()
		case trial.StateInfo:
			if s.blocked() {
				return s, s.openProfile()
			}
			return s, s.recheck()
		}
	}
	return s, nil
}

// blocked reports whether only the profile screen can move the player on.
func (s *PlayScreen) blocked() bool {
	c := s.session.Lifecycle.ValidateState()
	return !c.IsComplete && !c.CanProgressFrom(lifecycle.RoutePlay)
}

func (s *PlayScreen) openProfile() tea.Cmd {
	next := profile.New(s.session.Profile, s.session.Lifecycle, s.logger)
	return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
}

func (s *PlayScreen) reset() (screen.Screen, tea.Cmd) {
	s.tickGen++
	s.busy = false
	s.errMsg = ""
	s.fatal = nil
	if err := s.trial.Reset(context.Background()); err != nil {
		s.errMsg = err.Error()
		return s, nil
	}
	return s, s.loadInfos()
}

func (s *PlayScreen) loadInfos() tea.Cmd {
	s.busy = true
	tr := s.trial
	return func() tea.Msg {
		d, err := tr.LoadInfos(context.Background())
		return reconciledMsg{Decision: d, Err: err}
	}
}

func (s *PlayScreen) read() tea.Cmd {
	s.busy = true
	s.errMsg = ""
	tr := s.trial
	return func() tea.Msg {
		return readMsg{Err: tr.Read(context.Background())}
	}
}

// recheck refreshes the player's availability before sampling, so
// material added since the info was shown is served.
func (s *PlayScreen) recheck() tea.Cmd {
	s.busy = true
	s.errMsg = ""
	tr, handle := s.trial, s.session.Profile
	return func() tea.Msg {
		ctx := context.Background()
		if err := handle.Reload(ctx); err != nil {
			return readMsg{Err: err}
		}
		return readMsg{Err: tr.Read(ctx)}
	}
}

func (s *PlayScreen) submit() (screen.Screen, tea.Cmd) {
	text := s.editor.Value()
	if n := trial.CountTokens(text); n < s.minTokens() {
		s.errMsg = "Write at least a few more words."
		return s, nil
	}
	s.busy = true
	s.errMsg = ""
	s.tickGen++ // the countdown must not time the trial out while saving
	tr := s.trial
	return s, func() tea.Msg {
		d, err := tr.ProcessWriting(context.Background(), text)
		return reconciledMsg{Decision: d, Err: err}
	}
}

func (s *PlayScreen) minTokens() int {
	return s.trial.MinTokens()
}

func (s *PlayScreen) handleReconciled(msg reconciledMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		return s.handleError(msg.Err)
	}
	s.logger.Debug("reconciled", "decision", msg.Decision, "state", s.trial.State())
	return s, s.enter()
}

func (s *PlayScreen) handleRead(msg readMsg) (screen.Screen, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		return s.handleError(msg.Err)
	}
	return s, s.enter()
}

func (s *PlayScreen) handleError(err error) (screen.Screen, tea.Cmd) {
	switch {
	case errors.Is(err, trial.ErrStale):
		return s, nil
	case errors.Is(err, sampling.ErrNoMaterial):
		s.errMsg = "No sentence is left for you right now."
		return s, nil
	case errors.Is(err, trial.ErrTooShort):
		s.errMsg = "Write at least a few more words."
		return s, s.resumeCountdown()
	case trial.IsInvariant(err):
		s.fatal = err
		s.logger.Error("trial failed", "error", err)
		if ferr := s.trial.Fire(context.Background(), trial.EventFail); ferr != nil {
			s.logger.Error("fail trial", "error", ferr)
		}
		return s, nil
	}
	s.errMsg = err.Error()
	if s.trial.State() == trial.StateWritingUser {
		return s, s.resumeCountdown()
	}
	return s, nil
}

// enter prepares the view of the state the trial is now in.
func (s *PlayScreen) enter() tea.Cmd {
	switch s.trial.State() {
	case trial.StateReading:
		return s.startCountdown("Read", s.trial.ReadDuration())
	case trial.StateDistracting:
		return s.startCountdown("Wait", s.trial.DistractDuration())
	case trial.StateWritingUser:
		s.editor = components.NewEditor("Write the sentence as you remember it...", s.width, 3)
		return tea.Batch(s.startCountdown("Write", s.trial.WriteDuration()), s.editor.Model.Focus())
	}
	return nil
}

func (s *PlayScreen) startCountdown(label string, d time.Duration) tea.Cmd {
	s.tickGen++
	s.countdown = components.NewCountdown(label, d, s.width)
	return tickCmd(s.tickGen)
}

func (s *PlayScreen) resumeCountdown() tea.Cmd {
	s.tickGen++
	return tickCmd(s.tickGen)
}

func (s *PlayScreen) handleTick(msg tickMsg) (screen.Screen, tea.Cmd) {
	if msg.Gen != s.tickGen || s.busy {
		return s, nil
	}
	if !s.countdown.Tick(tickInterval) {
		return s, tickCmd(s.tickGen)
	}

	var ev trial.Event
	switch s.trial.State() {
	case trial.StateReading:
		ev = trial.EventDistract
	case trial.StateDistracting:
		ev = trial.EventWriteUser
	case trial.StateWritingUser:
		ev = trial.EventTimeout
	default:
		return s, nil
	}
	if err := s.trial.Fire(context.Background(), ev); err != nil {
		return s.handleError(err)
	}
	return s, s.enter()
}

func tickCmd(gen int) tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg{Gen: gen, Time: t}
	})
}
