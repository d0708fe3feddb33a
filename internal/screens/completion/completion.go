// Package completion shows the result of a finished quiz.
package completion

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/screen"
	historyscreen "github.com/abhisek/elmath/internal/screens/history"
	"github.com/abhisek/elmath/internal/session"
	"github.com/abhisek/elmath/internal/ui/components"
	"github.com/abhisek/elmath/internal/ui/layout"
	"github.com/abhisek/elmath/internal/ui/theme"
)

// BackMsg asks to return to the selection screen.
type BackMsg struct{}

// RetryMsg asks to start another quiz with the same settings.
type RetryMsg struct{}

// CompletionScreen displays the session summary.
type CompletionScreen struct {
	user      string
	summary   *session.Summary
	committed bool
	menu      components.Menu
}

var _ screen.Screen = (*CompletionScreen)(nil)
var _ screen.KeyHintProvider = (*CompletionScreen)(nil)

// New creates a CompletionScreen for res.
func New(res session.Result, user string) *CompletionScreen {
	return &CompletionScreen{
		user:      user,
		summary:   session.BuildSummary(res),
		committed: res.Committed,
		menu: components.NewMenu([]components.MenuItem{
			{Label: "확인", Action: send(BackMsg{})},
			{Label: "다시 풀기", Action: send(RetryMsg{})},
			{Label: "퀴즈 이력 조회", Action: send(historyscreen.OpenMsg{})},
		}),
	}
}

func send(msg tea.Msg) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return msg }
	}
}

func (s *CompletionScreen) Init() tea.Cmd {
	return nil
}

func (s *CompletionScreen) Title() string {
	return "퀴즈 결과"
}

func (s *CompletionScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "이동"},
		{Key: "Enter", Description: "선택"},
		{Key: "Esc", Description: "확인"},
	}
}

func (s *CompletionScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok && kmsg.String() == "esc" {
		return s, func() tea.Msg { return BackMsg{} }
	}
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *CompletionScreen) View(width, height int) string {
	sum := s.summary
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var b strings.Builder

	if sum.Success {
		b.WriteString(center.Foreground(theme.Primary).Bold(true).
			Render(fmt.Sprintf("🎉 정말 대단해, %s! 🎉", s.user)))
		b.WriteString("\n")
		b.WriteString(center.Foreground(theme.Text).Render("모든 문제를 다 풀었어!"))
	} else {
		b.WriteString(center.Foreground(theme.Accent).Bold(true).Render("괜찮아요, 다음 기회에!"))
		b.WriteString("\n")
		b.WriteString(center.Foreground(theme.Text).Render(failureText(sum.Reason)))
	}
	b.WriteString("\n\n")

	b.WriteString(center.Foreground(theme.Success).Bold(true).
		Render(fmt.Sprintf("최종 점수: %d점 / %d점", sum.TotalCorrect, sum.TotalProblems)))
	b.WriteString("\n")

	mins := int(sum.Duration.Minutes())
	secs := int(sum.Duration.Seconds()) % 60
	b.WriteString(center.Foreground(theme.TextDim).
		Render(fmt.Sprintf("정답률 %.0f%%    푼 문제 %d개    걸린 시간 %d:%02d",
			sum.Accuracy*100, sum.Answered, mins, secs)))
	b.WriteString("\n\n")

	if len(sum.ByCategory) > 0 {
		parts := make([]string, 0, len(sum.ByCategory))
		for _, cr := range sum.ByCategory {
			parts = append(parts, fmt.Sprintf("%s %d", cr.Category, cr.Correct))
		}
		b.WriteString(center.Foreground(theme.Secondary).Render("맞힌 문제: " + strings.Join(parts, " · ")))
		b.WriteString("\n")
	}

	if m := sum.Missed; m != nil {
		b.WriteString(center.Foreground(theme.TextDim).
			Render(fmt.Sprintf("놓친 문제: %s  (정답 %s)", m.Problem.Question, m.Problem.Answer)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if s.committed {
		b.WriteString(center.Foreground(theme.TextDim).Render("퀴즈 완료 이력이 저장되었습니다."))
	} else {
		b.WriteString(center.Foreground(theme.Error).Render("이력을 저장하지 못했어요."))
	}
	b.WriteString("\n\n")

	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.menu.View()))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func failureText(reason string) string {
	switch reason {
	case session.ReasonAttempts:
		return "기회를 모두 사용했습니다. 다시 도전하면 더 잘할 수 있어요!"
	case session.ReasonTimeout:
		return "시간이 다 됐어요. 다시 도전하면 더 잘할 수 있어요!"
	case session.ReasonQuit:
		return "퀴즈를 중간에 그만뒀어요."
	default:
		return "퀴즈가 종료되었습니다."
	}
}
