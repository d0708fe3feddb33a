package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/ui/theme"
)

// answerChars are the characters an arithmetic answer can contain.
const answerChars = "0123456789-/."

// TextInput wraps bubbles/textinput with el Math styling.
type TextInput struct {
	Model textinput.Model

	// AnswerOnly drops typed characters that cannot appear in an answer.
	AnswerOnly bool
	MaxLen     int
	submitted  bool
	valid      bool
}

// NewTextInput creates a new styled text input.
func NewTextInput(placeholder string, answerOnly bool, maxLen int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()

	if maxLen > 0 {
		ti.CharLimit = maxLen
	}

	return TextInput{
		Model:      ti,
		AnswerOnly: answerOnly,
		MaxLen:     maxLen,
	}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.AnswerOnly {
		if kmsg, ok := msg.(tea.KeyPressMsg); ok && kmsg.Text != "" && !Allowed(kmsg.Text) {
			return t, nil
		}
	}

	if _, ok := msg.(tea.KeyPressMsg); ok {
		t.submitted = false
	}

	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// Allowed reports whether every rune of s may be typed into an answer.
func Allowed(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(answerChars, r) {
			return false
		}
	}
	return true
}

// View renders the text input.
func (t TextInput) View() string {
	view := t.Model.View()
	if t.submitted {
		if t.valid {
			view += " " + lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
		} else {
			view += " " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
		}
	}
	return view
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// Len returns the number of characters typed.
func (t TextInput) Len() int {
	return len([]rune(t.Model.Value()))
}

// Submit marks the input as submitted with a validation result and clears
// the typed text.
func (t *TextInput) Submit(valid bool) {
	t.submitted = true
	t.valid = valid
	t.Model.Reset()
}

// Focus gives the input keyboard focus.
func (t *TextInput) Focus() tea.Cmd {
	return t.Model.Focus()
}

// Blur removes keyboard focus.
func (t *TextInput) Blur() {
	t.Model.Blur()
}
