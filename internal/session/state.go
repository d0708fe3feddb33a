package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/problemgen"
)

var (
	// ErrSessionActive is returned by StartSession while a session is running.
	ErrSessionActive = errors.New("session: a session is already active")

	// ErrInvalidSettings wraps every Settings validation failure.
	ErrInvalidSettings = errors.New("session: invalid settings")

	// ErrEmptyBatch is returned when no problem could be generated.
	ErrEmptyBatch = errors.New("session: no problems generated")
)

// Phase is the lifecycle phase of a Machine.
type Phase int

const (
	PhaseIdle            Phase = iota // No session
	PhaseActive                       // Serving problems
	PhaseFinishedSuccess              // Every problem answered
	PhaseFinishedFailure              // Out of attempts, timed out, or ended early
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseFinishedSuccess:
		return "finished-success"
	case PhaseFinishedFailure:
		return "finished-failure"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Finished reports whether p is one of the finished phases.
func (p Phase) Finished() bool {
	return p == PhaseFinishedSuccess || p == PhaseFinishedFailure
}

// Feedback is the correctness flag shown for the current problem.
type Feedback int

const (
	FeedbackNone      Feedback = iota // Nothing to show, or the submission was ignored
	FeedbackCorrect                   // Right answer, advancing shortly
	FeedbackIncorrect                 // Wrong answer, retry allowed
	FeedbackFailed                    // Out of attempts
	FeedbackTimedOut                  // Countdown expired
)

func (f Feedback) String() string {
	switch f {
	case FeedbackCorrect:
		return "correct"
	case FeedbackIncorrect:
		return "incorrect"
	case FeedbackFailed:
		return "failed"
	case FeedbackTimedOut:
		return "timed-out"
	default:
		return "none"
	}
}

// Settings selects what a session asks.
type Settings struct {
	Grade problemgen.Grade      `json:"grade"`
	Types []problemgen.Category `json:"types"`
	Level problemgen.Level      `json:"level"`
}

// DefaultSettings is the selection shown to a new user.
func DefaultSettings() Settings {
	return Settings{
		Grade: problemgen.Grade1,
		Types: []problemgen.Category{problemgen.CategoryAddition},
		Level: problemgen.LevelBeginner,
	}
}

// IsRandom reports whether the settings ask for Random problems.
func (s Settings) IsRandom() bool {
	return len(s.Types) == 1 && s.Types[0] == problemgen.CategoryRandom
}

// Validate checks grade, level and types. Types must be exactly [Random]
// or distinct categories valid for the grade.
func (s Settings) Validate() error {
	if !s.Grade.Valid() {
		return fmt.Errorf("%w: unknown grade %q", ErrInvalidSettings, s.Grade)
	}
	if !s.Level.Valid() {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidSettings, s.Level)
	}
	if len(s.Types) == 0 {
		return fmt.Errorf("%w: no types selected", ErrInvalidSettings)
	}
	if s.IsRandom() {
		return nil
	}
	for i, c := range s.Types {
		if c == problemgen.CategoryRandom {
			return fmt.Errorf("%w: Random cannot be combined with other types", ErrInvalidSettings)
		}
		if !c.AllowedFor(s.Grade) {
			return fmt.Errorf("%w: %q is not offered for %s", ErrInvalidSettings, c, s.Grade)
		}
		if slices.Contains(s.Types[:i], c) {
			return fmt.Errorf("%w: duplicate type %q", ErrInvalidSettings, c)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.Types = slices.Clone(s.Types)
	return s
}

// Outcome is the final result of one problem.
type Outcome struct {
	Problem         problemgen.Problem
	SubmittedAnswer string
	Correct         bool
	TimedOut        bool
}

// View is a read-only snapshot of a Machine.
type View struct {
	Phase     Phase
	SessionID string
	Settings  Settings

	// Problem is the current problem, nil when idle or past the last one.
	Problem *problemgen.Problem

	// Index is the 0-based position of Problem.
	Index int
	Total int

	Attempts    int
	MaxAttempts int
	Score       int
	Feedback    Feedback

	// Remaining is the countdown for the current problem.
	Remaining time.Duration

	// Locked is true once the current problem is answered and waiting to
	// advance; submissions are ignored.
	Locked bool

	Outcomes []Outcome

	// Exhausted is true when the batch is short because generation ran out
	// of retries.
	Exhausted bool

	// Reason explains a finish, e.g. "timeout", "attempts", "quit".
	Reason string
}

// Result is delivered to Hooks.OnFinish.
type Result struct {
	SessionID string
	Owner     string
	Settings  Settings
	Success   bool
	Reason    string
	Score     int
	Total     int
	Outcomes  []Outcome
	Record    history.Record
	Elapsed   time.Duration

	// Committed is false when the history write failed.
	Committed bool
}

// Hooks receive machine events. They are called without the machine lock
// held and may call back into the machine.
type Hooks struct {
	OnTick    func(remaining time.Duration)
	OnTimeout func()
	OnChange  func(View)
	OnFinish  func(Result)
}

// Finish reasons.
const (
	ReasonCompleted = "completed"
	ReasonAttempts  = "attempts"
	ReasonTimeout   = "timeout"
	ReasonQuit      = "quit"
)
