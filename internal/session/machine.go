package session

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/problemgen"
)

// Ledger records finished sessions. *history.Ledger implements it.
type Ledger interface {
	Commit(user string, rec history.Record) error
}

// Options configures a Machine. Zero fields get defaults.
type Options struct {
	Limits    Limits
	Scheduler Scheduler
	Ledger    Ledger
	Hooks     Hooks
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Machine runs quiz sessions for one user. It is safe for concurrent use;
// timer callbacks and UI calls may interleave freely.
//
// Every scheduled callback carries the epoch it was created in. Moving to
// a new problem or leaving the active phase bumps the epoch and stops the
// timers, so a callback that was already in flight finds a stale epoch and
// does nothing.
type Machine struct {
	owner  string
	src    ProblemSource
	limits Limits
	sched  Scheduler
	ledger Ledger
	logger *slog.Logger
	clock  func() time.Time

	mu        sync.Mutex
	hooks     Hooks
	phase     Phase
	id        string
	settings  Settings
	problems  []problemgen.Problem
	exhausted bool
	index     int
	attempts  int
	score     int
	feedback  Feedback
	locked    bool
	remaining time.Duration
	outcomes  []Outcome
	reason    string
	started   time.Time
	result    *Result

	epoch   uint64
	tick    Timer
	clear   Timer
	advance Timer
	finish  Timer
}

// New creates an idle Machine whose sessions are committed under owner.
func New(owner string, src ProblemSource, opts Options) *Machine {
	m := &Machine{
		owner:  owner,
		src:    src,
		limits: opts.Limits.normalized(),
		sched:  opts.Scheduler,
		ledger: opts.Ledger,
		hooks:  opts.Hooks,
		logger: opts.Logger,
		clock:  opts.Clock,
	}
	if m.sched == nil {
		m.sched = RealScheduler()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m
}

// Owner returns the user the machine commits history for.
func (m *Machine) Owner() string { return m.owner }

// Limits returns the effective limits.
func (m *Machine) Limits() Limits { return m.limits }

// SetHooks replaces the event hooks.
func (m *Machine) SetHooks(h Hooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = h
}

// events collects hook calls to run once the lock is released.
type events []func()

func (e *events) add(f func()) { *e = append(*e, f) }

func (m *Machine) unlockAndFire(ev *events) {
	m.mu.Unlock()
	for _, f := range *ev {
		f()
	}
}

// StartSession builds a new batch and starts the first problem. A finished
// session that was not acknowledged is discarded.
func (m *Machine) StartSession(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if m.phase == PhaseActive {
		return ErrSessionActive
	}

	batch, err := BuildBatch(m.src, s, m.limits.ProblemCount, m.limits.MaxGenerationRetries)
	if err != nil {
		return err
	}
	if len(batch.Problems) == 0 {
		return ErrEmptyBatch
	}
	if batch.Exhausted {
		m.logger.Warn("generation exhausted",
			"requested", m.limits.ProblemCount,
			"generated", len(batch.Problems),
			"rejected", batch.Rejected)
	}

	m.stopTimersLocked()
	m.id = uuid.NewString()
	m.settings = s.Clone()
	m.problems = batch.Problems
	m.exhausted = batch.Exhausted
	m.index = 0
	m.score = 0
	m.outcomes = nil
	m.reason = ""
	m.result = nil
	m.started = m.clock()
	m.phase = PhaseActive

	m.logger.Info("session started",
		"session", m.id,
		"user", m.owner,
		"grade", s.Grade,
		"level", s.Level,
		"problems", len(m.problems))

	m.startProblemLocked(&ev)
	return nil
}

// SubmitAnswer checks raw against the current problem. It returns
// FeedbackNone without side effects when no problem is waiting for an
// answer or raw is blank.
func (m *Machine) SubmitAnswer(raw string) Feedback {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if m.phase != PhaseActive || m.locked {
		return FeedbackNone
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FeedbackNone
	}

	p := m.problems[m.index]
	if problemgen.CheckAnswer(raw, p) {
		m.score++
		m.outcomes = append(m.outcomes, Outcome{Problem: p, SubmittedAnswer: raw, Correct: true})
		m.feedback = FeedbackCorrect
		m.locked = true
		m.stopTimersLocked()
		m.changed(&ev)

		if m.limits.CorrectDelay == 0 {
			m.advanceLocked(&ev)
		} else {
			epoch := m.epoch
			m.advance = m.sched.AfterFunc(m.limits.CorrectDelay, func() { m.onAdvance(epoch) })
		}
		return FeedbackCorrect
	}

	m.attempts++
	if m.attempts >= m.limits.MaxAttempts {
		m.outcomes = append(m.outcomes, Outcome{Problem: p, SubmittedAnswer: raw})
		m.feedback = FeedbackFailed
		m.finishLocked(PhaseFinishedFailure, ReasonAttempts, m.limits.FailureDelay, &ev)
		return FeedbackFailed
	}

	m.feedback = FeedbackIncorrect
	if m.clear != nil {
		m.clear.Stop()
		m.clear = nil
	}
	if m.limits.RetryDelay > 0 {
		epoch := m.epoch
		m.clear = m.sched.AfterFunc(m.limits.RetryDelay, func() { m.onClearFeedback(epoch) })
	}
	m.changed(&ev)
	return FeedbackIncorrect
}

// Timeout fails the session as if the countdown had expired.
func (m *Machine) Timeout() {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if m.phase != PhaseActive || m.locked {
		return
	}
	m.timeoutLocked(&ev)
}

// AdvanceToNextProblem moves to the next problem, or finishes the session
// successfully after the last one.
func (m *Machine) AdvanceToNextProblem() {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if m.phase != PhaseActive {
		return
	}
	m.advanceLocked(&ev)
}

// EndSessionEarly stops the active session. It counts as a failure unless
// every problem was already answered.
func (m *Machine) EndSessionEarly(reason string) {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if m.phase != PhaseActive {
		return
	}
	if reason == "" {
		reason = "ended"
	}
	if len(m.outcomes) == len(m.problems) {
		m.index = len(m.problems)
		m.finishLocked(PhaseFinishedSuccess, ReasonCompleted, 0, &ev)
		return
	}
	m.finishLocked(PhaseFinishedFailure, reason, 0, &ev)
}

// Acknowledge returns a finished machine to idle.
func (m *Machine) Acknowledge() {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if !m.phase.Finished() {
		return
	}
	m.resetLocked()
	m.changed(&ev)
}

// Close cancels all timers and drops any session without committing it.
func (m *Machine) Close() {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	wasIdle := m.phase == PhaseIdle
	m.resetLocked()
	if !wasIdle {
		m.logger.Info("session closed", "user", m.owner)
		m.changed(&ev)
	}
}

// State returns a snapshot of the machine.
func (m *Machine) State() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// LastResult returns the result of the most recent finished session, until
// it is acknowledged.
func (m *Machine) LastResult() (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

func (m *Machine) startProblemLocked(ev *events) {
	m.stopTimersLocked()
	m.attempts = 0
	m.feedback = FeedbackNone
	m.locked = false
	m.remaining = m.limits.TimeLimit
	m.scheduleTickLocked()
	m.changed(ev)
}

func (m *Machine) scheduleTickLocked() {
	epoch := m.epoch
	d := min(m.limits.TickInterval, m.remaining)
	m.tick = m.sched.AfterFunc(d, func() { m.onTick(epoch, d) })
}

func (m *Machine) onTick(epoch uint64, elapsed time.Duration) {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if epoch != m.epoch || m.phase != PhaseActive || m.locked {
		return
	}
	m.tick = nil
	m.remaining = max(m.remaining-elapsed, 0)
	if h := m.hooks.OnTick; h != nil {
		remaining := m.remaining
		ev.add(func() { h(remaining) })
	}
	if m.remaining > 0 {
		m.scheduleTickLocked()
		return
	}
	if h := m.hooks.OnTimeout; h != nil {
		ev.add(h)
	}
	m.timeoutLocked(&ev)
}

func (m *Machine) onAdvance(epoch uint64) {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if epoch != m.epoch || m.phase != PhaseActive {
		return
	}
	m.advance = nil
	m.advanceLocked(&ev)
}

func (m *Machine) onClearFeedback(epoch uint64) {
	m.mu.Lock()
	var ev events
	defer m.unlockAndFire(&ev)

	if epoch != m.epoch || m.phase != PhaseActive || m.feedback != FeedbackIncorrect {
		return
	}
	m.clear = nil
	m.feedback = FeedbackNone
	m.changed(&ev)
}

func (m *Machine) onFinishDelay(epoch uint64, res Result) {
	m.mu.Lock()
	if epoch != m.epoch || !m.phase.Finished() {
		m.mu.Unlock()
		return
	}
	m.finish = nil
	h := m.hooks.OnFinish
	m.mu.Unlock()

	if h != nil {
		h(res)
	}
}

func (m *Machine) timeoutLocked(ev *events) {
	if m.attempts < m.limits.MaxAttempts {
		m.attempts++
	}
	m.remaining = 0
	m.outcomes = append(m.outcomes, Outcome{Problem: m.problems[m.index], TimedOut: true})
	m.feedback = FeedbackTimedOut
	m.finishLocked(PhaseFinishedFailure, ReasonTimeout, m.limits.FailureDelay, ev)
}

func (m *Machine) advanceLocked(ev *events) {
	m.index++
	if m.index >= len(m.problems) {
		m.index = len(m.problems)
		m.finishLocked(PhaseFinishedSuccess, ReasonCompleted, 0, ev)
		return
	}
	m.startProblemLocked(ev)
}

// finishLocked ends the session, commits it to the ledger and schedules
// OnFinish after delay.
func (m *Machine) finishLocked(phase Phase, reason string, delay time.Duration, ev *events) {
	m.stopTimersLocked()
	m.phase = phase
	m.reason = reason
	m.locked = true

	now := m.clock()
	res := Result{
		SessionID: m.id,
		Owner:     m.owner,
		Settings:  m.settings.Clone(),
		Success:   phase == PhaseFinishedSuccess,
		Reason:    reason,
		Score:     m.score,
		Total:     len(m.problems),
		Outcomes:  slices.Clone(m.outcomes),
		Record:    history.NewRecord(now, m.score, len(m.problems)),
		Elapsed:   now.Sub(m.started),
	}
	if m.ledger != nil {
		if err := m.ledger.Commit(m.owner, res.Record); err != nil {
			m.logger.Warn("history commit failed", "session", m.id, "user", m.owner, "err", err)
		} else {
			res.Committed = true
		}
	}
	m.result = &res

	m.logger.Info("session finished",
		"session", m.id,
		"phase", phase.String(),
		"reason", reason,
		"score", m.score,
		"total", len(m.problems))

	m.changed(ev)

	h := m.hooks.OnFinish
	if h == nil {
		return
	}
	if delay > 0 {
		epoch := m.epoch
		m.finish = m.sched.AfterFunc(delay, func() { m.onFinishDelay(epoch, res) })
		return
	}
	ev.add(func() { h(res) })
}

func (m *Machine) resetLocked() {
	m.stopTimersLocked()
	m.phase = PhaseIdle
	m.id = ""
	m.settings = Settings{}
	m.problems = nil
	m.exhausted = false
	m.index = 0
	m.attempts = 0
	m.score = 0
	m.feedback = FeedbackNone
	m.locked = false
	m.remaining = 0
	m.outcomes = nil
	m.reason = ""
	m.result = nil
}

func (m *Machine) stopTimersLocked() {
	m.epoch++
	for _, t := range []*Timer{&m.tick, &m.clear, &m.advance, &m.finish} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (m *Machine) changed(ev *events) {
	h := m.hooks.OnChange
	if h == nil {
		return
	}
	v := m.viewLocked()
	ev.add(func() { h(v) })
}

func (m *Machine) viewLocked() View {
	v := View{
		Phase:       m.phase,
		SessionID:   m.id,
		Settings:    m.settings.Clone(),
		Index:       m.index,
		Total:       len(m.problems),
		Attempts:    m.attempts,
		MaxAttempts: m.limits.MaxAttempts,
		Score:       m.score,
		Feedback:    m.feedback,
		Remaining:   m.remaining,
		Locked:      m.locked,
		Outcomes:    slices.Clone(m.outcomes),
		Exhausted:   m.exhausted,
		Reason:      m.reason,
	}
	if m.phase != PhaseIdle && m.index < len(m.problems) {
		p := m.problems[m.index]
		v.Problem = &p
	}
	return v
}
