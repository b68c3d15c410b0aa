// Package home is the start screen: pick a player or register a new one.
package home

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/gistr/gistr/internal/game"
	"github.com/gistr/gistr/internal/router"
	"github.com/gistr/gistr/internal/screen"
	"github.com/gistr/gistr/internal/screens/play"
	"github.com/gistr/gistr/internal/store"
	"github.com/gistr/gistr/internal/ui/components"
	"github.com/gistr/gistr/internal/ui/layout"
	"github.com/gistr/gistr/internal/ui/theme"
)

// profilesMsg carries the profile list loaded by Init.
type profilesMsg struct {
	Profiles []*store.Profile
	Err      error
}

// openedMsg carries a session opened for the chosen player.
type openedMsg struct {
	Session *game.Session
	Err     error
}

// HomeScreen lists the players and registers new ones.
type HomeScreen struct {
	env    *game.Env
	logger *slog.Logger

	menu     components.Menu
	loaded   bool
	creating bool
	name     components.TextInput
	tongue   components.TextInput
	focus    int
	errMsg   string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Capturing = (*HomeScreen)(nil)

// New creates a HomeScreen.
func New(env *game.Env) *HomeScreen {
	return &HomeScreen{env: env, logger: env.Logger}
}

// Init loads the profile list.
func (h *HomeScreen) Init() tea.Cmd {
	profiles := h.env.Store.Profiles()
	return func() tea.Msg {
		ps, err := profiles.List(context.Background())
		return profilesMsg{Profiles: ps, Err: err}
	}
}

func (h *HomeScreen) Title() string {
	return "Players"
}

func (h *HomeScreen) CapturesKeys() bool { return h.creating }

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	if h.creating {
		return []layout.KeyHint{
			{Key: "Tab", Description: "Next field"},
			{Key: "Enter", Description: "Create"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case profilesMsg:
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			return h, nil
		}
		h.loaded = true
		h.menu = components.NewMenu(h.items(msg.Profiles))
		return h, nil

	case openedMsg:
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			return h, nil
		}
		h.creating = false
		next := play.New(msg.Session, h.logger)
		return h, func() tea.Msg { return router.PushScreenMsg{Screen: next} }

	case tea.KeyPressMsg:
		if h.creating {
			return h.updateForm(msg)
		}
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) items(profiles []*store.Profile) []components.MenuItem {
	items := make([]components.MenuItem, 0, len(profiles)+2)
	for _, p := range profiles {
		items = append(items, components.MenuItem{
			Label:  p.Name,
			Detail: fmt.Sprintf("%s · %s", p.Mothertongue, p.LifecycleState),
			Action: func() tea.Cmd { return h.open(p) },
		})
	}
	items = append(items,
		components.MenuItem{Label: "New player", Action: func() tea.Cmd { return h.startForm() }},
		components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	)
	return items
}

func (h *HomeScreen) open(p *store.Profile) tea.Cmd {
	env := h.env
	return func() tea.Msg {
		s, err := env.Open(context.Background(), p)
		return openedMsg{Session: s, Err: err}
	}
}

func (h *HomeScreen) startForm() tea.Cmd {
	h.creating = true
	h.errMsg = ""
	h.focus = 0
	h.name = components.NewTextInput("Name", "your player name", 32)
	h.tongue = components.NewTextInput("Mothertongue", "english, french, other...", 32)
	h.tongue.Blur()
	return h.name.Focus()
}

func (h *HomeScreen) updateForm(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		h.creating = false
		return h, nil
	case "tab", "shift+tab":
		h.focus = 1 - h.focus
		if h.focus == 0 {
			h.tongue.Blur()
			return h, h.name.Focus()
		}
		h.name.Blur()
		return h, h.tongue.Focus()
	case "enter":
		return h, h.create()
	}

	var cmd tea.Cmd
	if h.focus == 0 {
		h.name, cmd = h.name.Update(msg)
	} else {
		h.tongue, cmd = h.tongue.Update(msg)
	}
	return h, cmd
}

func (h *HomeScreen) create() tea.Cmd {
	name := h.name.Value()
	tongue := strings.ToLower(h.tongue.Value())
	if name == "" {
		h.name.Err = "Pick a name."
		return nil
	}
	env := h.env
	return func() tea.Msg {
		ctx := context.Background()
		p, err := env.Store.Profiles().Create(ctx, name, tongue)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateName) {
				return openedMsg{Err: fmt.Errorf("the name %q is taken", name)}
			}
			return openedMsg{Err: err}
		}
		s, err := env.Open(ctx, p)
		return openedMsg{Session: s, Err: err}
	}
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("gistr"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render("read it, remember it, pass it on"))
	b.WriteString("\n\n")

	switch {
	case h.creating:
		b.WriteString(h.name.View())
		b.WriteString("\n\n")
		b.WriteString(h.tongue.View())
	case !h.loaded && h.errMsg == "":
		b.WriteString(theme.Hint.Render("Loading players..."))
	default:
		b.WriteString(h.menu.View())
	}

	if h.errMsg != "" {
		b.WriteString("\n\n" + theme.Failure.Render(h.errMsg))
	}

	card := theme.Card.Width(min(width-4, 60)).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
