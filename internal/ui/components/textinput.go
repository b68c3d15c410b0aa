package components

import (
	"strings"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/gistr/gistr/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with a label and an error line.
type TextInput struct {
	Model textinput.Model
	Label string
	Err   string
}

// NewTextInput creates a new focused text input.
func NewTextInput(label, placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	ti.Focus()
	return TextInput{Model: ti, Label: label}
}

// Update handles messages.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// Focus focuses the input.
func (t *TextInput) Focus() tea.Cmd {
	return t.Model.Focus()
}

// Blur removes focus from the input.
func (t *TextInput) Blur() {
	t.Model.Blur()
}

// View renders the label, the input and the error, if any.
func (t TextInput) View() string {
	view := t.Model.View()
	if t.Label != "" {
		view = theme.Body.Render(t.Label) + "\n" + view
	}
	if t.Err != "" {
		view += "\n" + theme.Failure.Render(t.Err)
	}
	return view
}

// Value returns the trimmed input value.
func (t TextInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Editor wraps bubbles/textarea for writing a sentence. Enter is left to
// the caller for submitting.
type Editor struct {
	Model textarea.Model
}

// NewEditor creates a new focused editor.
func NewEditor(placeholder string, width, height int) Editor {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.SetWidth(width)
	ta.SetHeight(height)
	ta.Focus()
	return Editor{Model: ta}
}

// Update handles messages.
func (e Editor) Update(msg tea.Msg) (Editor, tea.Cmd) {
	var cmd tea.Cmd
	e.Model, cmd = e.Model.Update(msg)
	return e, cmd
}

// SetWidth resizes the editor.
func (e *Editor) SetWidth(w int) {
	e.Model.SetWidth(w)
}

// View renders the editor.
func (e Editor) View() string {
	return e.Model.View()
}

// Value returns the text with line breaks folded into spaces.
func (e Editor) Value() string {
	return strings.Join(strings.Fields(e.Model.Value()), " ")
}
