package quiz

import (
	"time"

	"github.com/abhisek/elmath/internal/session"
)

// The session machine's hooks are delivered to the program as these
// messages. They may arrive out of order, so the screen only treats them
// as a signal to re-read the session state.

// TickMsg is sent on every countdown tick.
type TickMsg struct {
	Remaining time.Duration
}

// TimeoutMsg is sent when the countdown of a problem runs out.
type TimeoutMsg struct{}

// ChangedMsg is sent whenever the session state changes.
type ChangedMsg struct {
	View session.View
}

// FinishedMsg is sent when a session ends, after any failure delay.
type FinishedMsg struct {
	Result session.Result
}
