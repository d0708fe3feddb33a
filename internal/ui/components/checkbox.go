package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/ui/theme"
)

// Checkbox is a labelled on/off toggle.
type Checkbox struct {
	Label   string
	Checked bool
	Focused bool
}

// Update toggles the box on space or enter while focused.
func (c Checkbox) Update(msg tea.Msg) Checkbox {
	if !c.Focused {
		return c
	}
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		switch kmsg.String() {
		case "space", "enter", "x":
			c.Checked = !c.Checked
		}
	}
	return c
}

// View renders the checkbox.
func (c Checkbox) View() string {
	box := "[ ]"
	if c.Checked {
		box = "[x]"
	}
	style := lipgloss.NewStyle().Foreground(theme.Text)
	if c.Focused {
		style = style.Foreground(theme.Primary).Bold(true)
	}
	return style.Render(box + " " + c.Label)
}
