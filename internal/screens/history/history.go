// Package history lists the logged-in user's past quiz results.
package history

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/router"
	"github.com/abhisek/elmath/internal/screen"
	"github.com/abhisek/elmath/internal/ui/layout"
	"github.com/abhisek/elmath/internal/ui/theme"
)

// OpenMsg asks the application to show the history screen.
type OpenMsg struct{}

// Source provides the records to display, newest first.
type Source interface {
	History() []history.Record
}

type historyLoadedMsg struct {
	Records []history.Record
}

// HistoryScreen displays past quiz results.
type HistoryScreen struct {
	src      Source
	records  []history.Record
	selected int
	offset   int
	loaded   bool
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(src Source) *HistoryScreen {
	return &HistoryScreen{src: src}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{Records: s.src.History()}
	}
}

func (s *HistoryScreen) Title() string {
	return "나의 퀴즈 이력"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "이동"},
		{Key: "Esc", Description: "닫기"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.records = msg.Records
		s.loaded = true
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "esc", "q", "enter":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.records)-1 {
				s.selected++
			}
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  불러오는 중...")
	}
	if len(s.records) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  아직 퀴즈를 푼 이력이 없습니다.")
	}

	var b strings.Builder
	b.WriteString("\n")

	header := fmt.Sprintf("  %-12s %9s %8s", "날짜", "점수", "정답률")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Bold(true).Render(header)))
	b.WriteString("\n\n")

	// Keep the selection on screen.
	visible := max(height-4, 1)
	if s.selected < s.offset {
		s.offset = s.selected
	}
	if s.selected >= s.offset+visible {
		s.offset = s.selected - visible + 1
	}
	end := min(s.offset+visible, len(s.records))

	for i := s.offset; i < end; i++ {
		rec := s.records[i]
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%-12s %4d / %-4d %6.0f%%",
			prefix, rec.Date, rec.Score, rec.TotalProblems, rec.Accuracy()*100)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}

	return b.String()
}
