package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/ui/theme"
)

// ChoiceMsg is sent when an option of a ChoiceRow is pressed.
type ChoiceMsg struct {
	Row    string
	Option string
}

// ChoiceRow is a labelled row of option chips navigated with left/right.
// Which chips are on is decided by the owner; the row only reports presses.
type ChoiceRow struct {
	ID      string
	Label   string
	Options []string
	Cursor  int
	Focused bool
}

// NewChoiceRow creates a row with the cursor on the first option.
func NewChoiceRow(id, label string, options []string) ChoiceRow {
	return ChoiceRow{ID: id, Label: label, Options: options}
}

// SetOptions replaces the options, keeping the cursor in range.
func (r *ChoiceRow) SetOptions(options []string) {
	r.Options = options
	r.Cursor = min(r.Cursor, max(len(options)-1, 0))
}

// Update moves the cursor and emits a ChoiceMsg on enter or space.
func (r ChoiceRow) Update(msg tea.Msg) (ChoiceRow, tea.Cmd) {
	if !r.Focused || len(r.Options) == 0 {
		return r, nil
	}
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return r, nil
	}

	switch kmsg.String() {
	case "left", "h":
		if r.Cursor > 0 {
			r.Cursor--
		}
	case "right", "l":
		if r.Cursor < len(r.Options)-1 {
			r.Cursor++
		}
	case "enter", "space":
		choice := ChoiceMsg{Row: r.ID, Option: r.Options[r.Cursor]}
		return r, func() tea.Msg { return choice }
	}
	return r, nil
}

// View renders the row. on reports whether an option is currently chosen.
func (r ChoiceRow) View(on func(option string) bool) string {
	labelStyle := lipgloss.NewStyle().Foreground(theme.TextDim).Width(12)
	if r.Focused {
		labelStyle = labelStyle.Foreground(theme.Primary).Bold(true)
	}

	chips := make([]string, 0, len(r.Options))
	for i, opt := range r.Options {
		style := theme.ChipOff
		if on != nil && on(opt) {
			style = theme.ChipOn
		}
		text := opt
		if r.Focused && i == r.Cursor {
			style = style.Underline(true)
			text = "▸" + text
		}
		chips = append(chips, style.Render(text))
	}

	return labelStyle.Render(r.Label) + strings.Join(chips, " ")
}
