// Package login asks for the user's name.
package login

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/screen"
	"github.com/abhisek/elmath/internal/ui/components"
	"github.com/abhisek/elmath/internal/ui/layout"
	"github.com/abhisek/elmath/internal/ui/theme"
)

// LoggedInMsg is sent after a successful login.
type LoggedInMsg struct {
	Name string
}

// Authenticator validates and records a login. Errors are shown to the
// user as they are.
type Authenticator interface {
	Login(name string, remember bool) error
}

type focus int

const (
	focusName focus = iota
	focusRemember
	focusStart
	focusCount
)

// LoginScreen collects a name and the remember-me choice.
type LoginScreen struct {
	auth     Authenticator
	maxLen   int
	input    components.TextInput
	remember components.Checkbox
	focus    focus
	errMsg   string
}

var _ screen.Screen = (*LoginScreen)(nil)
var _ screen.KeyHintProvider = (*LoginScreen)(nil)

// New creates a LoginScreen. maxLen caps the typed name in characters.
func New(auth Authenticator, maxLen int) *LoginScreen {
	return &LoginScreen{
		auth:     auth,
		maxLen:   maxLen,
		input:    components.NewTextInput("여기에 이름을 써주세요", false, maxLen),
		remember: components.Checkbox{Label: "이름 기억하기"},
	}
}

func (s *LoginScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *LoginScreen) Title() string {
	return "로그인"
}

func (s *LoginScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "퀴즈 시작"},
		{Key: "Tab", Description: "다음 항목"},
		{Key: "Space", Description: "선택"},
		{Key: "Ctrl+C", Description: "종료"},
	}
}

func (s *LoginScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		if s.focus == focusName {
			var cmd tea.Cmd
			s.input, cmd = s.input.Update(msg)
			return s, cmd
		}
		return s, nil
	}

	switch kmsg.String() {
	case "tab", "down":
		return s, s.setFocus((s.focus + 1) % focusCount)
	case "shift+tab", "up":
		return s, s.setFocus((s.focus + focusCount - 1) % focusCount)
	case "enter":
		return s, s.submit()
	}

	switch s.focus {
	case focusName:
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		s.errMsg = ""
		return s, cmd
	case focusRemember:
		if kmsg.String() == "space" {
			s.remember = s.remember.Update(msg)
		}
	case focusStart:
		if kmsg.String() == "space" {
			return s, s.submit()
		}
	}
	return s, nil
}

func (s *LoginScreen) setFocus(f focus) tea.Cmd {
	s.focus = f
	s.remember.Focused = f == focusRemember
	if f == focusName {
		return s.input.Focus()
	}
	s.input.Blur()
	return nil
}

func (s *LoginScreen) submit() tea.Cmd {
	name := s.input.Value()
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if err := s.auth.Login(name, s.remember.Checked); err != nil {
		s.errMsg = err.Error()
		return nil
	}
	s.errMsg = ""
	trimmed := strings.TrimSpace(name)
	return func() tea.Msg { return LoggedInMsg{Name: trimmed} }
}

func (s *LoginScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(layout.AppName) +
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(" 퀴즈!"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render("이름을 입력하고 신나는 퀴즈를 시작해봐요!"))
	b.WriteString("\n\n")

	count := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("%d/%d", s.input.Len(), s.maxLen))
	b.WriteString(s.input.View() + "  " + count)
	b.WriteString("\n")

	if s.errMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render(s.errMsg))
	}
	b.WriteString("\n\n")

	b.WriteString(s.remember.View())
	b.WriteString("\n\n")

	ready := strings.TrimSpace(s.input.Value()) != ""
	label := "퀴즈 시작!"
	if !ready {
		label = lipgloss.NewStyle().Foreground(theme.Border).Render(label)
	}
	b.WriteString(components.ArcadeButton(label, ready && s.focus == focusStart, cw/2))

	card := components.ArcadeCard(b.String(), cw)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
