package play

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/gistr/gistr/internal/lifecycle"
	"github.com/gistr/gistr/internal/trial"
	"github.com/gistr/gistr/internal/ui/theme"
)

const instructions = `You will read a sentence for a few seconds.
After a short pause, write it down as well as you remember it.
Your version becomes the sentence the next player reads.`

func (s *PlayScreen) View(width, height int) string {
	var body string
	switch s.trial.State() {
	case trial.StateInstructions:
		body = s.renderInstructions()
	case trial.StateReading:
		body = s.renderReading(width)
	case trial.StateDistracting:
		body = s.renderDistracting()
	case trial.StateWritingUser:
		body = s.renderWriting()
	case trial.StateWritingProcessing:
		body = s.renderProcessed()
	case trial.StateTimedOut:
		body = theme.Failure.Render("Time is up.") + "\n\n" +
			theme.Hint.Render("This sentence was not saved. Press Enter for the next one.")
	case trial.StateInfo:
		body = s.renderInfo(width)
	case trial.StateFailed:
		body = s.renderFailed(width)
	}

	if s.busy {
		body += "\n\n" + theme.Hint.Render("...")
	}
	if s.errMsg != "" {
		body += "\n\n" + theme.Failure.Render(s.errMsg)
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func (s *PlayScreen) renderInstructions() string {
	return theme.Title.Render("How to play") + "\n\n" +
		theme.Body.Render(instructions) + "\n\n" +
		theme.Hint.Render("Press Enter to start.")
}

func (s *PlayScreen) renderReading(width int) string {
	text := ""
	if sentence := s.trial.Sentence(); sentence != nil {
		text = sentence.Text
	}
	return theme.Sentence.Width(min(width-4, s.width)).Render(text) + "\n\n" + s.countdown.View()
}

func (s *PlayScreen) renderDistracting() string {
	return theme.Subtitle.Render("Keep the sentence in mind...") + "\n\n" + s.countdown.View()
}

func (s *PlayScreen) renderWriting() string {
	return theme.Body.Render("Write the sentence you just read:") + "\n\n" +
		s.editor.View() + "\n\n" +
		theme.Hint.Render(fmt.Sprintf("%d words, at least %d", trial.CountTokens(s.editor.Value()), s.minTokens())) + "\n" +
		s.countdown.View()
}

func (s *PlayScreen) renderProcessed() string {
	var b strings.Builder
	b.WriteString(theme.Done.Render("Saved."))
	if tree := s.trial.Tree(); tree != nil {
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Render(fmt.Sprintf(
			"This tree now has %d branches, the shortest %d sentences deep.",
			tree.BranchesCount, tree.ShortestBranchDepth)))
	}
	b.WriteString("\n\n")
	b.WriteString(theme.Hint.Render("Press Enter for the next sentence."))
	return b.String()
}

func (s *PlayScreen) renderInfo(width int) string {
	var lines []string
	for _, name := range s.trial.Infos() {
		lines = append(lines, "• "+describeInfo(name))
	}

	hint := "Press Enter to continue."
	cycle := s.session.Lifecycle.ValidateState()
	switch {
	case s.blocked():
		lines = append(lines, "Your profile needs attention before you can play:")
		for _, e := range cycle.Errors {
			lines = append(lines, "  - "+e)
		}
		hint = "Press P to open your profile."
	case s.session.Profile.Profile().AvailableTreesBucket == 0:
		lines = append(lines, "No sentence is left for you in this stage right now.")
		hint = "Come back later, or press Enter to check again."
	}
	if cycle.State == lifecycle.StateExpTraining && !cycle.IsComplete && !s.blocked() {
		lines = append(lines, fmt.Sprintf("Training: %d sentences to go.", s.trainingLeft()))
	}

	card := theme.InfoCard.Width(min(width-4, s.width+4)).Render(strings.Join(lines, "\n"))
	return card + "\n\n" + theme.Hint.Render(hint)
}

func (s *PlayScreen) trainingLeft() int {
	return max(s.session.Lifecycle.Config().TrainingWork-s.session.Profile.Profile().TrainedReformulationsCount, 0)
}

func (s *PlayScreen) renderFailed(width int) string {
	msg := "Something went wrong with this trial."
	if s.fatal != nil {
		msg += "\n\n" + s.fatal.Error()
	}
	return theme.Failure.Width(min(width-4, s.width)).Render(msg) + "\n\n" +
		theme.Hint.Render("Press Ctrl+R to start over.")
}
