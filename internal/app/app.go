package app

import (
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/router"
	"github.com/abhisek/elmath/internal/screen"
	"github.com/abhisek/elmath/internal/screens/completion"
	historyscreen "github.com/abhisek/elmath/internal/screens/history"
	"github.com/abhisek/elmath/internal/screens/login"
	"github.com/abhisek/elmath/internal/screens/quiz"
	"github.com/abhisek/elmath/internal/screens/selection"
	"github.com/abhisek/elmath/internal/screens/welcome"
	"github.com/abhisek/elmath/internal/session"
	"github.com/abhisek/elmath/internal/ui/layout"
)

// AppModel is the root Bubble Tea model. It owns screen transitions; the
// screens only report what happened.
type AppModel struct {
	ctrl   *Controller
	router *router.Router
	width  int
	height int
}

// newAppModel creates an AppModel that starts on the loading splash.
func newAppModel(ctrl *Controller) AppModel {
	m := AppModel{ctrl: ctrl}
	m.router = router.New(welcome.New(func() screen.Screen {
		if ctrl.Bootstrap() == StageSelection {
			return m.selectionScreen()
		}
		return m.loginScreen()
	}))
	return m
}

func (m AppModel) loginScreen() screen.Screen {
	return login.New(m.ctrl, m.ctrl.cfg.Identity.MaxNameLength)
}

func (m AppModel) selectionScreen() screen.Screen {
	id, _ := m.ctrl.User()
	return selection.New(m.ctrl, id.Name)
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}

	case login.LoggedInMsg:
		return m, m.router.Reset(m.selectionScreen())

	case selection.StartedMsg:
		return m, m.router.Reset(quiz.New(m.ctrl))

	case selection.LogoutMsg:
		m.ctrl.Logout()
		return m, m.router.Reset(m.loginScreen())

	case historyscreen.OpenMsg:
		return m, m.router.Push(historyscreen.New(m.ctrl))

	case quiz.FinishedMsg:
		// A quit or a return during the failure delay may already have left
		// the quiz stage.
		if m.ctrl.Stage() != StageCompletion {
			return m, nil
		}
		id, _ := m.ctrl.User()
		return m, m.router.Reset(completion.New(msg.Result, id.Name))

	case completion.BackMsg:
		if err := m.ctrl.ReturnToSelection(); err != nil {
			return m, nil
		}
		return m, m.router.Reset(m.selectionScreen())

	case completion.RetryMsg:
		if err := m.ctrl.ReturnToSelection(); err != nil {
			return m, nil
		}
		if err := m.ctrl.StartQuiz(); err != nil {
			return m, m.router.Reset(m.selectionScreen())
		}
		return m, m.router.Reset(quiz.New(m.ctrl))
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	user := ""
	if id, ok := m.ctrl.User(); ok {
		user = id.Name
	}
	header := layout.RenderHeader(title, user, m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "뒤로"},
			{Key: "Ctrl+C", Description: "종료"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "Enter", Description: "선택"},
			{Key: "Ctrl+C", Description: "종료"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 0)

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program on top of ctrl.
func Run(ctrl *Controller) error {
	p := tea.NewProgram(newAppModel(ctrl))

	ctrl.SetHooks(session.Hooks{
		OnTick: func(d time.Duration) {
			go p.Send(quiz.TickMsg{Remaining: d})
		},
		OnTimeout: func() {
			go p.Send(quiz.TimeoutMsg{})
		},
		OnChange: func(v session.View) {
			go p.Send(quiz.ChangedMsg{View: v})
		},
		OnFinish: func(r session.Result) {
			go p.Send(quiz.FinishedMsg{Result: r})
		},
	})
	defer ctrl.SetHooks(session.Hooks{})

	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
