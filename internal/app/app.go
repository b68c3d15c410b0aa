package app

import (
	"fmt"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/gistr/gistr/internal/game"
	"github.com/gistr/gistr/internal/router"
	"github.com/gistr/gistr/internal/screen"
	"github.com/gistr/gistr/internal/screens/home"
	"github.com/gistr/gistr/internal/screens/play"
	"github.com/gistr/gistr/internal/ui/layout"
)

// Options configures the program.
type Options struct {
	Env *game.Env

	// Session, when set, starts the program on its play screen.
	Session *game.Session
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	session *game.Session
	logger  *slog.Logger
	width   int
	height  int
}

// newAppModel creates a new AppModel with the home screen.
func newAppModel(opts Options) AppModel {
	logger := opts.Env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return AppModel{
		router:  router.New(home.New(opts.Env)),
		session: opts.Session,
		logger:  logger,
	}
}

func (m AppModel) Init() tea.Cmd {
	cmd := m.router.Active().Init()
	if m.session == nil {
		return cmd
	}
	next := play.New(m.session, m.logger)
	return tea.Batch(cmd, func() tea.Msg { return router.PushScreenMsg{Screen: next} })
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.router.Update(msg)

	case router.PushScreenMsg:
		// New screens have not seen the terminal size yet.
		cmd := m.router.Update(msg)
		if m.width == 0 {
			return m, cmd
		}
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		return m, tea.Batch(cmd, func() tea.Msg { return size })

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.capturing() && m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) capturing() bool {
	c, ok := m.router.Active().(screen.Capturing)
	return ok && c.CapturesKeys()
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	var status layout.Status
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
	}

	header := layout.RenderHeader(title, status, m.width)

	var footerHints []layout.KeyHint
	if kp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = kp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 0)

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
