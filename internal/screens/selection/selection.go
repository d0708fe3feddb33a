// Package selection lets the user pick grade, types and level.
package selection

import (
	"errors"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/problemgen"
	"github.com/abhisek/elmath/internal/screen"
	historyscreen "github.com/abhisek/elmath/internal/screens/history"
	"github.com/abhisek/elmath/internal/session"
	"github.com/abhisek/elmath/internal/ui/components"
	"github.com/abhisek/elmath/internal/ui/layout"
	"github.com/abhisek/elmath/internal/ui/theme"
)

// StartedMsg is sent once a quiz has been started.
type StartedMsg struct{}

// LogoutMsg asks the application to log the user out.
type LogoutMsg struct{}

// Controller is the part of the application the screen drives.
type Controller interface {
	Settings() session.Settings
	SetGrade(problemgen.Grade) error
	ToggleType(problemgen.Category) error
	SetLevel(problemgen.Level) error
	StartQuiz() error
}

const (
	rowGrade  = "grade"
	rowType   = "type"
	rowLevel  = "level"
	rowAction = "action"
)

const (
	actionStart   = "퀴즈 시작!"
	actionHistory = "퀴즈 이력 조회"
	actionLogout  = "로그아웃"
)

// randomLabel is how CategoryRandom is shown.
const randomLabel = "랜덤"

// SelectionScreen shows the quiz settings.
type SelectionScreen struct {
	ctrl   Controller
	user   string
	rows   []components.ChoiceRow
	focus  int
	errMsg string
}

var _ screen.Screen = (*SelectionScreen)(nil)
var _ screen.KeyHintProvider = (*SelectionScreen)(nil)

// New creates a SelectionScreen greeting user.
func New(ctrl Controller, user string) *SelectionScreen {
	s := &SelectionScreen{
		ctrl: ctrl,
		user: user,
		rows: []components.ChoiceRow{
			components.NewChoiceRow(rowGrade, "학년 선택", labels(problemgen.Grades)),
			components.NewChoiceRow(rowType, "유형 선택", nil),
			components.NewChoiceRow(rowLevel, "난이도 선택", labels(problemgen.Levels)),
			components.NewChoiceRow(rowAction, "", []string{actionStart, actionHistory, actionLogout}),
		},
		focus: 3,
	}
	s.refreshTypes()
	s.rows[s.focus].Focused = true
	return s
}

func labels[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func typeOptions(g problemgen.Grade) []string {
	opts := labels(problemgen.CategoriesFor(g))
	if g.OffersRandom() {
		opts = append(opts, randomLabel)
	}
	return opts
}

func (s *SelectionScreen) refreshTypes() {
	s.rows[1].SetOptions(typeOptions(s.ctrl.Settings().Grade))
}

func (s *SelectionScreen) Init() tea.Cmd {
	return nil
}

func (s *SelectionScreen) Title() string {
	return "퀴즈 설정하기"
}

func (s *SelectionScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "항목"},
		{Key: "←→", Description: "선택지"},
		{Key: "Enter", Description: "선택"},
		{Key: "Ctrl+C", Description: "종료"},
	}
}

func (s *SelectionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case components.ChoiceMsg:
		return s, s.choose(msg)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k", "shift+tab":
			s.moveFocus(-1)
			return s, nil
		case "down", "j", "tab":
			s.moveFocus(1)
			return s, nil
		}
		var cmd tea.Cmd
		s.rows[s.focus], cmd = s.rows[s.focus].Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *SelectionScreen) moveFocus(dir int) {
	s.rows[s.focus].Focused = false
	s.focus = (s.focus + dir + len(s.rows)) % len(s.rows)
	s.rows[s.focus].Focused = true
}

func (s *SelectionScreen) choose(msg components.ChoiceMsg) tea.Cmd {
	var err error
	switch msg.Row {
	case rowGrade:
		err = s.ctrl.SetGrade(problemgen.Grade(msg.Option))
		s.refreshTypes()
	case rowType:
		cat := problemgen.Category(msg.Option)
		if msg.Option == randomLabel {
			cat = problemgen.CategoryRandom
		}
		err = s.ctrl.ToggleType(cat)
	case rowLevel:
		err = s.ctrl.SetLevel(problemgen.Level(msg.Option))
	case rowAction:
		switch msg.Option {
		case actionStart:
			if err := s.ctrl.StartQuiz(); err != nil {
				s.errMsg = startError(err)
				return nil
			}
			s.errMsg = ""
			return func() tea.Msg { return StartedMsg{} }
		case actionHistory:
			return func() tea.Msg { return historyscreen.OpenMsg{} }
		case actionLogout:
			return func() tea.Msg { return LogoutMsg{} }
		}
	}
	if err != nil {
		s.errMsg = "선택할 수 없는 항목이에요."
	} else {
		s.errMsg = ""
	}
	return nil
}

func startError(err error) string {
	switch {
	case errors.Is(err, session.ErrEmptyBatch):
		return "문제를 만들지 못했어요. 다른 설정을 골라 주세요."
	case errors.Is(err, session.ErrInvalidSettings):
		return "문제를 선택하여 주시기 바랍니다."
	default:
		return "퀴즈를 시작하지 못했어요."
	}
}

func (s *SelectionScreen) View(width, height int) string {
	settings := s.ctrl.Settings()

	on := map[string]func(string) bool{
		rowGrade: func(o string) bool { return o == string(settings.Grade) },
		rowType: func(o string) bool {
			if o == randomLabel {
				return settings.IsRandom()
			}
			return slices.Contains(settings.Types, problemgen.Category(o))
		},
		rowLevel:  func(o string) bool { return o == string(settings.Level) },
		rowAction: nil,
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
		Render(s.user + "님, 환영합니다!"))
	b.WriteString("\n\n")

	for i, row := range s.rows {
		if i == len(s.rows)-1 {
			b.WriteString("\n")
		}
		b.WriteString(row.View(on[row.ID]))
		b.WriteString("\n\n")
	}

	if s.errMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render(s.errMsg))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}
