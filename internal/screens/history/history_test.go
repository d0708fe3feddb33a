package history

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/router"
)

type stubSource []history.Record

func (s stubSource) History() []history.Record { return s }

func load(t *testing.T, s *HistoryScreen) {
	t.Helper()
	cmd := s.Init()
	if cmd == nil {
		t.Fatal("Init should load records")
	}
	s.Update(cmd())
}

func TestEmptyHistory(t *testing.T) {
	s := New(stubSource(nil))
	if !strings.Contains(s.View(80, 20), "불러오는 중") {
		t.Error("expected loading text before records arrive")
	}
	load(t, s)
	if !strings.Contains(s.View(80, 20), "이력이 없습니다") {
		t.Error("expected empty-history message")
	}
}

func TestRecordsRendered(t *testing.T) {
	s := New(stubSource{
		{Date: "2026-05-05", Score: 8, TotalProblems: 30},
		{Date: "2026-05-04", Score: 30, TotalProblems: 30},
	})
	load(t, s)

	view := s.View(80, 20)
	for _, want := range []string{"2026-05-05", "8 / 30", "2026-05-04", "100%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestNavigationAndClose(t *testing.T) {
	s := New(stubSource{{Date: "a"}, {Date: "b"}})
	load(t, s)

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if s.selected != 1 {
		t.Errorf("selected = %d, want 1", s.selected)
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if s.selected != 0 {
		t.Errorf("selected = %d, want 0", s.selected)
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("esc should close the screen")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Errorf("expected PopScreenMsg, got %T", cmd())
	}
}
