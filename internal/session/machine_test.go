package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/problemgen"
)

// seqSource answers problem i with i+1.
type seqSource struct{}

func (seqSource) Generate(_ problemgen.Grade, types []problemgen.Category, _ problemgen.Level, position int) (problemgen.Problem, error) {
	return problemgen.Problem{
		ID:         position + 1,
		Category:   types[position%len(types)],
		Question:   fmt.Sprintf("%d + 1 = ?", position),
		Answer:     strconv.Itoa(position + 1),
		AnswerType: problemgen.AnswerTypeInteger,
	}, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	err     error
	user    string
	records []history.Record
}

func (l *fakeLedger) Commit(user string, rec history.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.user = user
	l.records = append(l.records, rec)
	return nil
}

type recorder struct {
	mu       sync.Mutex
	ticks    []time.Duration
	timeouts int
	changes  int
	finishes []Result
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnTick: func(d time.Duration) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ticks = append(r.ticks, d)
		},
		OnTimeout: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.timeouts++
		},
		OnChange: func(View) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.changes++
		},
		OnFinish: func(res Result) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.finishes = append(r.finishes, res)
		},
	}
}

type fixture struct {
	m      *Machine
	sched  *ManualScheduler
	ledger *fakeLedger
	rec    *recorder
}

var testNow = time.Date(2026, time.May, 5, 10, 0, 0, 0, time.Local)

func newFixture(t *testing.T, limits Limits) *fixture {
	t.Helper()
	f := &fixture{
		sched:  NewManualScheduler(),
		ledger: &fakeLedger{},
		rec:    &recorder{},
	}
	f.m = New("민수", seqSource{}, Options{
		Limits:    limits,
		Scheduler: f.sched,
		Ledger:    f.ledger,
		Hooks:     f.rec.hooks(),
		Clock:     func() time.Time { return testNow },
	})
	return f
}

func testSettings() Settings {
	return Settings{
		Grade: problemgen.Grade1,
		Types: []problemgen.Category{problemgen.CategoryAddition},
		Level: problemgen.LevelBeginner,
	}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.m.StartSession(testSettings()); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
}

func (f *fixture) answer() string {
	return strconv.Itoa(f.m.State().Index + 1)
}

func TestStartSession(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	v := f.m.State()
	if v.Phase != PhaseActive {
		t.Fatalf("phase = %s, want active", v.Phase)
	}
	if v.Total != 30 || v.Index != 0 || v.Score != 0 || v.Attempts != 0 {
		t.Errorf("unexpected start view %+v", v)
	}
	if v.Remaining != 8*time.Second {
		t.Errorf("remaining = %v, want 8s", v.Remaining)
	}
	if _, err := uuid.Parse(v.SessionID); err != nil {
		t.Errorf("session id %q is not a UUID: %v", v.SessionID, err)
	}
	if v.Problem == nil || v.Problem.ID != 1 {
		t.Errorf("current problem = %+v, want id 1", v.Problem)
	}

	if err := f.m.StartSession(testSettings()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second StartSession err = %v, want ErrSessionActive", err)
	}
}

func TestStartSession_InvalidSettings(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	s := testSettings()
	s.Types = []problemgen.Category{problemgen.CategoryFraction}

	if err := f.m.StartSession(s); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if f.m.State().Phase != PhaseIdle {
		t.Error("machine left idle on invalid settings")
	}
}

func TestIdleOperationsAreNoops(t *testing.T) {
	f := newFixture(t, DefaultLimits())

	if fb := f.m.SubmitAnswer("1"); fb != FeedbackNone {
		t.Errorf("SubmitAnswer while idle = %s, want none", fb)
	}
	f.m.Timeout()
	f.m.AdvanceToNextProblem()
	f.m.EndSessionEarly("quit")
	f.m.Acknowledge()

	if v := f.m.State(); v.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", v.Phase)
	}
	if len(f.ledger.records) != 0 {
		t.Error("idle machine committed history")
	}
}

func TestCorrectAnswerAdvancesAfterDelay(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	if fb := f.m.SubmitAnswer(" 1 "); fb != FeedbackCorrect {
		t.Fatalf("feedback = %s, want correct", fb)
	}
	v := f.m.State()
	if v.Score != 1 || !v.Locked || v.Feedback != FeedbackCorrect {
		t.Fatalf("after correct: %+v", v)
	}
	if fb := f.m.SubmitAnswer("1"); fb != FeedbackNone {
		t.Errorf("resubmission = %s, want none", fb)
	}

	f.sched.Advance(999 * time.Millisecond)
	if f.m.State().Index != 0 {
		t.Fatal("advanced before the correct-answer delay")
	}
	f.sched.Advance(time.Millisecond)

	v = f.m.State()
	if v.Index != 1 || v.Attempts != 0 || v.Feedback != FeedbackNone || v.Locked {
		t.Errorf("after advance: %+v", v)
	}
	if v.Remaining != 8*time.Second {
		t.Errorf("countdown not reset: %v", v.Remaining)
	}
}

func TestBlankSubmissionIgnored(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	if fb := f.m.SubmitAnswer("   "); fb != FeedbackNone {
		t.Errorf("feedback = %s, want none", fb)
	}
	if f.m.State().Attempts != 0 {
		t.Error("blank submission consumed an attempt")
	}
}

func TestWrongAnswerRetryFeedbackClears(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	if fb := f.m.SubmitAnswer("99"); fb != FeedbackIncorrect {
		t.Fatalf("feedback = %s, want incorrect", fb)
	}
	f.sched.Advance(time.Second)

	v := f.m.State()
	if v.Feedback != FeedbackNone {
		t.Errorf("feedback after retry delay = %s, want none", v.Feedback)
	}
	if v.Attempts != 1 || v.Phase != PhaseActive || v.Index != 0 {
		t.Errorf("unexpected view %+v", v)
	}
	if v.Remaining != 7*time.Second {
		t.Errorf("countdown must keep running across retries: %v", v.Remaining)
	}
}

func TestMaxAttemptsFails(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	for i := 1; i < 5; i++ {
		if fb := f.m.SubmitAnswer("99"); fb != FeedbackIncorrect {
			t.Fatalf("attempt %d feedback = %s, want incorrect", i, fb)
		}
	}
	if fb := f.m.SubmitAnswer("98"); fb != FeedbackFailed {
		t.Fatalf("fifth wrong answer = %s, want failed", fb)
	}

	v := f.m.State()
	if v.Phase != PhaseFinishedFailure || v.Reason != ReasonAttempts {
		t.Fatalf("phase %s reason %q", v.Phase, v.Reason)
	}
	if v.Attempts != 5 {
		t.Errorf("attempts = %d, want 5", v.Attempts)
	}
	if len(v.Outcomes) != 1 || v.Outcomes[0].Correct || v.Outcomes[0].SubmittedAnswer != "98" {
		t.Errorf("outcomes = %+v", v.Outcomes)
	}
	if v.Remaining <= 0 {
		t.Error("failure by attempts should not need the countdown")
	}

	want := history.Record{Date: "2026-05-05", Score: 0, TotalProblems: 30}
	if len(f.ledger.records) != 1 || f.ledger.records[0] != want || f.ledger.user != "민수" {
		t.Errorf("ledger = %+v for %q, want %+v", f.ledger.records, f.ledger.user, want)
	}
}

func TestCountdownTimeout(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	f.sched.Advance(8 * time.Second)

	v := f.m.State()
	if v.Phase != PhaseFinishedFailure || v.Reason != ReasonTimeout {
		t.Fatalf("phase %s reason %q", v.Phase, v.Reason)
	}
	if v.Feedback != FeedbackTimedOut || v.Remaining != 0 {
		t.Errorf("feedback %s remaining %v", v.Feedback, v.Remaining)
	}
	if len(v.Outcomes) != 1 || !v.Outcomes[0].TimedOut || v.Outcomes[0].SubmittedAnswer != "" {
		t.Errorf("outcomes = %+v", v.Outcomes)
	}
	if len(f.rec.ticks) != 8 || f.rec.ticks[0] != 7*time.Second || f.rec.ticks[7] != 0 {
		t.Errorf("ticks = %v", f.rec.ticks)
	}
	if f.rec.timeouts != 1 {
		t.Errorf("OnTimeout fired %d times, want 1", f.rec.timeouts)
	}
}

func TestTimeoutDuringRetryFeedback(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	f.sched.Advance(7 * time.Second)
	if fb := f.m.SubmitAnswer("99"); fb != FeedbackIncorrect {
		t.Fatalf("feedback = %s", fb)
	}
	f.sched.Advance(time.Second)

	v := f.m.State()
	if v.Phase != PhaseFinishedFailure || v.Feedback != FeedbackTimedOut {
		t.Fatalf("phase %s feedback %s, want timeout failure", v.Phase, v.Feedback)
	}
	if v.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", v.Attempts)
	}
}

func TestExplicitTimeout(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)

	f.m.Timeout()
	if v := f.m.State(); v.Phase != PhaseFinishedFailure || v.Reason != ReasonTimeout {
		t.Fatalf("phase %s reason %q", v.Phase, v.Reason)
	}
	f.m.Timeout()
	if len(f.ledger.records) != 1 {
		t.Errorf("commits = %d, want 1", len(f.ledger.records))
	}
}

func TestFailureFinishHookDelayed(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)
	f.m.Timeout()

	if len(f.rec.finishes) != 0 {
		t.Fatal("OnFinish fired before the failure delay")
	}
	f.sched.Advance(1500 * time.Millisecond)
	if len(f.rec.finishes) != 1 || f.rec.finishes[0].Success {
		t.Fatalf("finishes = %+v", f.rec.finishes)
	}
}

func TestAcknowledgeCancelsPendingFinish(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)
	f.m.Timeout()
	f.m.Acknowledge()

	f.sched.Advance(10 * time.Second)
	if len(f.rec.finishes) != 0 {
		t.Error("OnFinish fired after acknowledge")
	}
	if f.m.State().Phase != PhaseIdle {
		t.Error("acknowledge did not return to idle")
	}
	if _, ok := f.m.LastResult(); ok {
		t.Error("result kept after acknowledge")
	}
}

func TestCompleteSessionCommitsSuccess(t *testing.T) {
	limits := DefaultLimits()
	limits.ProblemCount = 3
	limits.CorrectDelay = 0
	f := newFixture(t, limits)
	f.start(t)

	for i := 0; i < 3; i++ {
		if fb := f.m.SubmitAnswer(f.answer()); fb != FeedbackCorrect {
			t.Fatalf("problem %d feedback = %s", i, fb)
		}
	}

	v := f.m.State()
	if v.Phase != PhaseFinishedSuccess || v.Score != 3 || v.Index != 3 || v.Problem != nil {
		t.Fatalf("unexpected final view %+v", v)
	}
	if len(f.rec.finishes) != 1 || !f.rec.finishes[0].Success || !f.rec.finishes[0].Committed {
		t.Fatalf("finishes = %+v", f.rec.finishes)
	}
	want := history.Record{Date: "2026-05-05", Score: 3, TotalProblems: 3}
	if f.ledger.records[0] != want {
		t.Errorf("record = %+v, want %+v", f.ledger.records[0], want)
	}
	if f.sched.Pending() != 0 {
		t.Errorf("%d timers left after finish", f.sched.Pending())
	}
}

func TestFailurePreservesPartialScore(t *testing.T) {
	limits := DefaultLimits()
	limits.CorrectDelay = 0
	f := newFixture(t, limits)
	f.start(t)

	f.m.SubmitAnswer(f.answer())
	f.m.SubmitAnswer(f.answer())
	f.m.Timeout()

	res, ok := f.m.LastResult()
	if !ok {
		t.Fatal("no result")
	}
	if res.Success || res.Score != 2 || len(res.Outcomes) != 3 {
		t.Errorf("result = %+v", res)
	}
	if f.ledger.records[0].Score != 2 {
		t.Errorf("committed score = %d, want 2", f.ledger.records[0].Score)
	}
}

func TestEndSessionEarly(t *testing.T) {
	t.Run("partial is failure", func(t *testing.T) {
		f := newFixture(t, DefaultLimits())
		f.start(t)
		f.m.EndSessionEarly("quit")

		v := f.m.State()
		if v.Phase != PhaseFinishedFailure || v.Reason != "quit" {
			t.Fatalf("phase %s reason %q", v.Phase, v.Reason)
		}
		if len(f.rec.finishes) != 1 {
			t.Error("early end should report immediately")
		}
	})

	t.Run("all answered is success", func(t *testing.T) {
		limits := DefaultLimits()
		limits.ProblemCount = 1
		f := newFixture(t, limits)
		f.start(t)
		f.m.SubmitAnswer("1")
		f.m.EndSessionEarly("quit")

		if v := f.m.State(); v.Phase != PhaseFinishedSuccess {
			t.Fatalf("phase = %s, want success", v.Phase)
		}
		f.sched.Advance(time.Minute)
		if len(f.ledger.records) != 1 {
			t.Errorf("commits = %d, want 1", len(f.ledger.records))
		}
	})
}

func TestCloseDropsSession(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.start(t)
	f.m.SubmitAnswer("99")
	f.m.Close()

	if v := f.m.State(); v.Phase != PhaseIdle || v.Total != 0 {
		t.Fatalf("view after close = %+v", v)
	}
	if f.sched.Pending() != 0 {
		t.Errorf("%d timers left after close", f.sched.Pending())
	}
	f.sched.Advance(time.Minute)
	if len(f.ledger.records) != 0 || f.rec.timeouts != 0 {
		t.Error("closed session kept running")
	}
}

func TestLedgerFailureDegrades(t *testing.T) {
	f := newFixture(t, DefaultLimits())
	f.ledger.err = errors.New("disk full")
	f.start(t)
	f.m.EndSessionEarly("quit")

	res, ok := f.m.LastResult()
	if !ok || res.Committed {
		t.Fatalf("result = %+v, ok = %v", res, ok)
	}
	if f.m.State().Phase != PhaseFinishedFailure {
		t.Error("session must still finish when the commit fails")
	}
}

// leakyScheduler never cancels, so stale callbacks really run.
type leakyScheduler struct{ *ManualScheduler }

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (s leakyScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.ManualScheduler.AfterFunc(d, f)
	return leakyTimer{}
}

func TestStaleTimersIgnored(t *testing.T) {
	sched := leakyScheduler{NewManualScheduler()}
	rec := &recorder{}
	m := New("민수", seqSource{}, Options{Scheduler: sched, Hooks: rec.hooks()})
	if err := m.StartSession(testSettings()); err != nil {
		t.Fatal(err)
	}

	sched.Advance(500 * time.Millisecond)
	m.SubmitAnswer("1")
	sched.Advance(time.Second) // stale tick at 1s, advance at 1.5s

	v := m.State()
	if v.Index != 1 || v.Remaining != 8*time.Second {
		t.Fatalf("index %d remaining %v, want 1 and 8s", v.Index, v.Remaining)
	}
	if len(rec.ticks) != 0 {
		t.Errorf("stale tick reached the hook: %v", rec.ticks)
	}

	sched.Advance(8 * time.Second)
	if rec.timeouts != 1 {
		t.Errorf("timeouts = %d, want 1", rec.timeouts)
	}
}

func TestHooksMayCallBack(t *testing.T) {
	sched := NewManualScheduler()
	var m *Machine
	m = New("민수", seqSource{}, Options{
		Scheduler: sched,
		Limits:    Limits{FailureDelay: 0},
		Hooks: Hooks{
			OnFinish: func(Result) { m.Acknowledge() },
		},
	})
	if err := m.StartSession(testSettings()); err != nil {
		t.Fatal(err)
	}
	m.Timeout()
	if m.State().Phase != PhaseIdle {
		t.Error("hook could not acknowledge from OnFinish")
	}
}

func TestScoreInvariant(t *testing.T) {
	limits := DefaultLimits()
	limits.CorrectDelay = 0
	limits.RetryDelay = 0
	f := newFixture(t, limits)
	f.start(t)

	for i := 0; f.m.State().Phase == PhaseActive; i++ {
		if i%3 == 2 {
			f.m.SubmitAnswer("-1")
		} else {
			f.m.SubmitAnswer(f.answer())
		}
		v := f.m.State()
		correct := 0
		for _, o := range v.Outcomes {
			if o.Correct {
				correct++
			}
		}
		if v.Score > correct || correct > v.Total || len(v.Outcomes) > v.Total {
			t.Fatalf("invariant broken: score %d correct %d total %d", v.Score, correct, v.Total)
		}
		if v.Attempts > v.MaxAttempts {
			t.Fatalf("attempts %d > max %d", v.Attempts, v.MaxAttempts)
		}
	}
}

func TestLimitsNormalized(t *testing.T) {
	l := Limits{TimeLimit: 500 * time.Millisecond, CorrectDelay: -1}.normalized()
	if l.ProblemCount != 30 || l.MaxAttempts != 5 || l.MaxGenerationRetries != 100 {
		t.Errorf("defaults not applied: %+v", l)
	}
	if l.TickInterval != 500*time.Millisecond {
		t.Errorf("tick = %v, want clamp to time limit", l.TickInterval)
	}
	if l.CorrectDelay != 0 {
		t.Errorf("negative delay kept: %v", l.CorrectDelay)
	}
}

// everyOtherSource repeats each problem twice in a row.
type everyOtherSource struct{ calls int }

func (s *everyOtherSource) Generate(_ problemgen.Grade, _ []problemgen.Category, _ problemgen.Level, _ int) (problemgen.Problem, error) {
	n := s.calls / 2
	s.calls++
	return problemgen.Problem{
		Category: problemgen.CategoryAddition,
		Question: fmt.Sprintf("%d + 1 = ?", n),
		Answer:   strconv.Itoa(n + 1),
	}, nil
}

func TestZeroOptionsFillWholeBatch(t *testing.T) {
	m := New("민수", &everyOtherSource{}, Options{Scheduler: NewManualScheduler()})
	if err := m.StartSession(testSettings()); err != nil {
		t.Fatal(err)
	}
	v := m.State()
	if v.Total != 30 || v.Exhausted {
		t.Errorf("built %d of 30 problems, exhausted=%v", v.Total, v.Exhausted)
	}
}
