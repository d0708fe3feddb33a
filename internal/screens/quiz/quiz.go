// Package quiz runs the problem-by-problem quiz screen.
package quiz

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/elmath/internal/screen"
	"github.com/abhisek/elmath/internal/session"
	"github.com/abhisek/elmath/internal/ui/components"
	"github.com/abhisek/elmath/internal/ui/layout"
)

// Session is the running quiz the screen displays.
type Session interface {
	State() session.View
	Submit(raw string) session.Feedback
	Quit()
	Limits() session.Limits
}

// QuizScreen implements screen.Screen for an active quiz.
type QuizScreen struct {
	sess        Session
	view        session.View
	input       components.TextInput
	confirmQuit bool
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New creates a QuizScreen for sess.
func New(sess Session) *QuizScreen {
	return &QuizScreen{
		sess:  sess,
		view:  sess.State(),
		input: components.NewTextInput("답을 입력하세요", true, 12),
	}
}

func (s *QuizScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *QuizScreen) Title() string {
	return "수학 퀴즈"
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	if s.confirmQuit {
		return []layout.KeyHint{
			{Key: "Y", Description: "그만하기"},
			{Key: "N", Description: "계속하기"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "정답 확인"},
		{Key: "Esc", Description: "그만하기"},
	}
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg, TimeoutMsg, ChangedMsg, FinishedMsg:
		s.refresh()
		return s, nil

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	if s.accepting() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *QuizScreen) refresh() {
	s.view = s.sess.State()
}

// accepting reports whether the current problem takes an answer.
func (s *QuizScreen) accepting() bool {
	return s.view.Phase == session.PhaseActive && !s.view.Locked && !s.confirmQuit
}

func (s *QuizScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.confirmQuit {
		switch key {
		case "y", "Y":
			s.confirmQuit = false
			s.sess.Quit()
			s.refresh()
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}

	switch key {
	case "esc":
		if s.view.Phase == session.PhaseActive {
			s.confirmQuit = true
		}
		return s, nil
	case "enter":
		if !s.accepting() {
			return s, nil
		}
		fb := s.sess.Submit(s.input.Value())
		if fb != session.FeedbackNone {
			s.input.Submit(fb == session.FeedbackCorrect)
		}
		s.refresh()
		return s, nil
	}

	if !s.accepting() {
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}
