package quiz

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/session"
	"github.com/abhisek/elmath/internal/ui/components"
	"github.com/abhisek/elmath/internal/ui/theme"
)

func (s *QuizScreen) View(width, height int) string {
	if s.confirmQuit {
		return renderQuitConfirm(width, height)
	}
	v := s.view
	if v.Problem == nil && v.Phase.Finished() {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Correct.Render("모든 문제를 다 풀었어요!"))
	}
	if v.Problem == nil {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  로딩 중...")
	}

	var b strings.Builder

	// Info line.
	secs := int((v.Remaining + time.Second - 1) / time.Second)
	timerStyle := lipgloss.NewStyle().Foreground(theme.TextDim)
	if v.Remaining <= components.UrgentAt {
		timerStyle = timerStyle.Foreground(theme.Error).Bold(true)
	}
	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  문제 %d / %d", v.Index+1, v.Total))
	infoRight := lipgloss.NewStyle().Foreground(theme.Success).Render(fmt.Sprintf("점수 %d", v.Score)) +
		"   " + timerStyle.Render(fmt.Sprintf("남은 시간: %d초", secs))

	infoLine := infoLeft
	if pad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 4; pad > 0 {
		infoLine += strings.Repeat(" ", pad) + infoRight
	}
	b.WriteString(infoLine)
	b.WriteString("\n  ")
	b.WriteString(components.NewCountdown(v.Remaining, s.sess.Limits().TimeLimit, width-4).View())
	b.WriteString("\n\n\n")

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	b.WriteString(center.Foreground(theme.Text).Bold(true).Render(v.Problem.Question))
	b.WriteString("\n\n")
	b.WriteString(center.Render("답: " + s.input.View()))
	b.WriteString("\n\n")

	if fb := feedbackLine(v); fb != "" {
		b.WriteString(center.Render(fb))
		b.WriteString("\n\n")
	}

	b.WriteString(center.Foreground(theme.TextDim).
		Render(fmt.Sprintf("입력 시도: %d회 / %d회", v.Attempts, v.MaxAttempts)))

	return b.String()
}

func feedbackLine(v session.View) string {
	answer := ""
	if v.Problem != nil {
		answer = lipgloss.NewStyle().Foreground(theme.TextDim).Render("  정답: " + v.Problem.Answer)
	}
	switch v.Feedback {
	case session.FeedbackCorrect:
		return theme.Correct.Render("정답이에요!")
	case session.FeedbackIncorrect:
		return theme.Incorrect.Render("틀렸어요. 다시 해 보세요!")
	case session.FeedbackFailed:
		return theme.Incorrect.Render("기회를 모두 사용했어요.") + answer
	case session.FeedbackTimedOut:
		return theme.Incorrect.Render("시간이 다 됐어요!") + answer
	}
	return ""
}

func renderQuitConfirm(width, height int) string {
	content := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("퀴즈를 그만할까요?") +
		"\n\n" +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render("지금까지의 점수가 이력에 저장돼요.") +
		"\n\n" +
		lipgloss.NewStyle().Foreground(theme.Accent).Render("[Y] 그만하기   [N] 계속하기")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
