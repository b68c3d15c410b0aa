package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/gistr/gistr/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is implemented by screens bound to a player. The header
// shows the returned status.
type StatusProvider interface {
	Status() layout.Status
}

// Capturing is implemented by screens that consume plain key presses such
// as esc or q themselves, so the app must not treat them as navigation.
type Capturing interface {
	CapturesKeys() bool
}
