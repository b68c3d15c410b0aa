// Package profile is the screen where players complete the lifecycle
// requirements that playing cannot: their mothertongue, the reading span
// test and the questionnaire.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/router"
	"github.com/gistr/gistr/internal/screen"
	"github.com/gistr/gistr/internal/store"
	"github.com/gistr/gistr/internal/ui/components"
	"github.com/gistr/gistr/internal/ui/layout"
	"github.com/gistr/gistr/internal/ui/theme"
)

// Handle is the in-memory profile the screen edits.
type Handle interface {
	Profile() store.Profile
	Update(fn func(p *store.Profile))
	Save(ctx context.Context) error
}

// ProfileScreen shows the player's lifecycle cycle and edits the
// requirements routed to the profile.
type ProfileScreen struct {
	handle    Handle
	lifecycle *lifecycle.Service
	logger    *slog.Logger

	editing bool
	input   components.TextInput
	errMsg  string
}

var _ screen.Screen = (*ProfileScreen)(nil)
var _ screen.KeyHintProvider = (*ProfileScreen)(nil)
var _ screen.StatusProvider = (*ProfileScreen)(nil)
var _ screen.Capturing = (*ProfileScreen)(nil)

// New creates a ProfileScreen.
func New(handle Handle, lc *lifecycle.Service, logger *slog.Logger) *ProfileScreen {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileScreen{handle: handle, lifecycle: lc, logger: logger}
}

func (s *ProfileScreen) Init() tea.Cmd { return nil }

func (s *ProfileScreen) Title() string { return "Profile" }

func (s *ProfileScreen) Status() layout.Status {
	p := s.handle.Profile()
	return layout.Status{Profile: p.Name, Stage: p.LifecycleState, Credit: p.SuggestionCredit}
}

func (s *ProfileScreen) CapturesKeys() bool { return s.editing }

func (s *ProfileScreen) KeyHints() []layout.KeyHint {
	if s.editing {
		return []layout.KeyHint{{Key: "Enter", Description: "Save"}, {Key: "Esc", Description: "Cancel"}}
	}
	return []layout.KeyHint{
		{Key: "M", Description: "Mothertongue"},
		{Key: "R", Description: "Reading span"},
		{Key: "Q", Description: "Questionnaire"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ProfileScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		if s.editing {
			var cmd tea.Cmd
			s.input, cmd = s.input.Update(msg)
			return s, cmd
		}
		return s, nil
	}

	if s.editing {
		switch kmsg.String() {
		case "esc":
			s.editing = false
			return s, nil
		case "enter":
			tongue := strings.ToLower(s.input.Value())
			if tongue == "" {
				s.input.Err = "Mothertongue cannot be empty."
				return s, nil
			}
			s.editing = false
			s.save(func(p *store.Profile) { p.Mothertongue = tongue })
			return s, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}

	switch kmsg.String() {
	case "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "m", "M":
		s.editing = true
		s.input = components.NewTextInput("Mothertongue", "english, french, other...", 32)
		return s, s.input.Focus()
	case "r", "R":
		s.save(func(p *store.Profile) { p.ReadingSpanDone = !p.ReadingSpanDone })
	case "q", "Q":
		s.save(func(p *store.Profile) { p.QuestionnaireDone = !p.QuestionnaireDone })
	}
	return s, nil
}

// save applies fn and persists it, undoing fn if saving fails.
func (s *ProfileScreen) save(fn func(p *store.Profile)) {
	before := s.handle.Profile()
	s.handle.Update(fn)
	if err := s.handle.Save(context.Background()); err != nil {
		s.handle.Update(func(p *store.Profile) { *p = before })
		s.errMsg = err.Error()
		s.logger.Error("save profile", "profile", before.ID, "error", err)
		return
	}
	s.errMsg = ""
}

func (s *ProfileScreen) View(width, height int) string {
	p := s.handle.Profile()
	cycle := s.lifecycle.ValidateState()

	var b strings.Builder
	b.WriteString(theme.Title.Render(p.Name))
	b.WriteString("\n\n")
	b.WriteString(renderStages(p.LifecycleState))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Mothertongue", orDash(p.Mothertongue)},
		{"Training sentences", fmt.Sprintf("%d / %d", p.TrainedReformulationsCount, s.lifecycle.Config().TrainingWork)},
		{"Experiment sentences", fmt.Sprintf("%d / %d", p.ReformulationsCount, s.lifecycle.Config().ExperimentWork)},
		{"Reading span", yesNo(p.ReadingSpanDone)},
		{"Questionnaire", yesNo(p.QuestionnaireDone)},
		{"Suggestion credit", fmt.Sprint(p.SuggestionCredit)},
	}
	for _, r := range rows {
		b.WriteString(theme.Hint.Render(fmt.Sprintf("%-22s", r[0])))
		b.WriteString(theme.Body.Render(r[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case cycle.IsComplete && cycle.State == lifecycle.StatePlaying:
		b.WriteString(theme.Done.Render("Nothing left to do. Enjoy the game!"))
	case cycle.IsComplete:
		b.WriteString(theme.Done.Render("All set for the next stage. It starts with your next trial."))
	default:
		b.WriteString(theme.Pending.Render("Still to do:"))
		for _, e := range cycle.Errors {
			b.WriteString("\n  " + theme.Body.Render(e))
		}
	}

	if s.editing {
		b.WriteString("\n\n" + s.input.View())
	}
	if s.errMsg != "" {
		b.WriteString("\n\n" + theme.Failure.Render(s.errMsg))
	}

	card := theme.Card.Width(min(width-4, 70)).Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func renderStages(current string) string {
	stages := lifecycle.Stages()
	idx := slices.Index(stages, current)
	parts := make([]string, len(stages))
	for i, st := range stages {
		switch {
		case i < idx:
			parts[i] = theme.Done.Render(st)
		case i == idx:
			parts[i] = theme.Selected.Render("[" + st + "]")
		default:
			parts[i] = theme.Hint.Render(st)
		}
	}
	return strings.Join(parts, theme.Hint.Render(" → "))
}

func yesNo(b bool) string {
	if b {
		return "done"
	}
	return "not yet"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
