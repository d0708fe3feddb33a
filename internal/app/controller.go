package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/elmath/internal/history"
	"github.com/abhisek/elmath/internal/identity"
	"github.com/abhisek/elmath/internal/problemgen"
	"github.com/abhisek/elmath/internal/session"
	"github.com/abhisek/elmath/internal/store"
)

// Stage is the top-level step of the application flow.
type Stage int

const (
	StageLoading Stage = iota
	StageLogin
	StageSelection
	StageQuiz
	StageCompletion
)

func (s Stage) String() string {
	switch s {
	case StageLogin:
		return "login"
	case StageSelection:
		return "selection"
	case StageQuiz:
		return "quiz"
	case StageCompletion:
		return "completion"
	default:
		return "loading"
	}
}

// SettingsKey is the store key holding every user's last selection.
const SettingsKey = "math_quiz_settings_all_users"

var (
	ErrNotLoggedIn = errors.New("app: not logged in")
	ErrWrongStage  = errors.New("app: not allowed at this stage")
)

var settingsSchema = &store.Schema{
	Name: "quiz-settings",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"grade", "types", "level"},
		"properties": map[string]any{
			"grade": map[string]any{"type": "string"},
			"level": map[string]any{"type": "string"},
			"types": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
		},
	},
}

// Controller drives the login → selection → quiz → completion flow on top
// of the core packages. It holds no terminal state and is shared by the TUI
// and tests.
type Controller struct {
	cfg    Config
	kv     *store.KV
	ids    *identity.Service
	ledger *history.Ledger
	src    session.ProblemSource
	sched  session.Scheduler
	clock  func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	hooks    session.Hooks
	stage    Stage
	user     identity.Identity
	settings session.Settings
	machine  *session.Machine
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger passed down to every component.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithScheduler replaces the timer source of quiz sessions.
func WithScheduler(s session.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithProblemSource replaces the problem generator.
func WithProblemSource(src session.ProblemSource) Option {
	return func(c *Controller) { c.src = src }
}

// WithClock sets the time source used for history dates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.clock = now }
}

// NewController wires the core components over kv.
func NewController(kv *store.KV, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		kv:     kv,
		sched:  session.RealScheduler(),
		clock:  time.Now,
		logger: slog.New(slog.DiscardHandler),
		stage:  StageLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		genCfg := problemgen.DefaultConfig()
		genCfg.ScaledMultiplication = cfg.ScaledMultiplication
		c.src = problemgen.New(genCfg)
	}
	c.ids = identity.New(kv, cfg.Identity, identity.WithLogger(c.logger))
	c.ledger = history.New(kv, history.WithClock(c.clock), history.WithLogger(c.logger))
	return c
}

// SetHooks sets the receivers of quiz events. The stage moves to
// StageCompletion before OnFinish is called.
func (c *Controller) SetHooks(h session.Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

// Ledger exposes the history ledger.
func (c *Controller) Ledger() *history.Ledger { return c.ledger }

// Limits returns the effective quiz limits.
func (c *Controller) Limits() session.Limits { return c.cfg.Limits }

// Bootstrap restores a remembered user. It returns StageSelection when one
// was found and StageLogin otherwise.
func (c *Controller) Bootstrap() Stage {
	if id, ok := c.ids.Restore(); ok {
		c.enter(id)
		c.logger.Info("identity restored", "user", id.Name)
		return StageSelection
	}
	c.mu.Lock()
	c.stage = StageLogin
	c.mu.Unlock()
	return StageLogin
}

// Login validates name and moves to selection. The returned error is an
// *identity.ValidationError whose message can be shown to the user.
func (c *Controller) Login(name string, remember bool) error {
	id, err := c.ids.Login(name, remember)
	if err != nil {
		return err
	}
	c.enter(id)
	c.logger.Info("logged in", "user", id.Name, "remember", remember)
	return nil
}

func (c *Controller) enter(id identity.Identity) {
	m := session.New(id.Name, c.src, session.Options{
		Limits:    c.cfg.Limits,
		Scheduler: c.sched,
		Ledger:    c.ledger,
		Hooks:     c.machineHooks(),
		Logger:    c.logger.With("component", "session"),
		Clock:     c.clock,
	})
	settings := c.loadSettings(id.Name)

	c.mu.Lock()
	old := c.machine
	c.machine = m
	c.user = id
	c.settings = settings
	c.stage = StageSelection
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// Logout drops any running quiz and returns to the login stage.
func (c *Controller) Logout() {
	c.mu.Lock()
	m := c.machine
	c.machine = nil
	c.user = identity.Identity{}
	c.stage = StageLogin
	c.mu.Unlock()

	if m != nil {
		m.Close()
	}
	c.ids.Logout()
}

// Stage returns the current stage.
func (c *Controller) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// User returns the logged-in user.
func (c *Controller) User() (identity.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.machine != nil
}

// Settings returns the current selection.
func (c *Controller) Settings() session.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Clone()
}

// SetGrade changes the grade. Types that are not offered for the new grade
// are dropped; if none remain the grade's first category is selected.
func (c *Controller) SetGrade(g problemgen.Grade) error {
	if !g.Valid() {
		return fmt.Errorf("%w: unknown grade %q", session.ErrInvalidSettings, g)
	}
	return c.mutate(func(s *session.Settings) error {
		s.Grade = g
		s.Types = normalizeTypes(g, s.Types)
		return nil
	})
}

// ToggleType adds or removes t from the selection. Random always replaces
// the whole selection, and choosing a concrete type clears Random.
func (c *Controller) ToggleType(t problemgen.Category) error {
	return c.mutate(func(s *session.Settings) error {
		if t == problemgen.CategoryRandom {
			if !s.Grade.OffersRandom() {
				return fmt.Errorf("%w: Random is not offered for %s", session.ErrInvalidSettings, s.Grade)
			}
			s.Types = []problemgen.Category{problemgen.CategoryRandom}
			return nil
		}
		if !t.AllowedFor(s.Grade) {
			return fmt.Errorf("%w: %q is not offered for %s", session.ErrInvalidSettings, t, s.Grade)
		}
		if s.IsRandom() {
			s.Types = []problemgen.Category{t}
			return nil
		}
		if i := slices.Index(s.Types, t); i >= 0 {
			s.Types = slices.Delete(s.Types, i, i+1)
		} else {
			s.Types = append(s.Types, t)
		}
		s.Types = normalizeTypes(s.Grade, s.Types)
		return nil
	})
}

// SetLevel changes the difficulty.
func (c *Controller) SetLevel(l problemgen.Level) error {
	if !l.Valid() {
		return fmt.Errorf("%w: unknown level %q", session.ErrInvalidSettings, l)
	}
	return c.mutate(func(s *session.Settings) error {
		s.Level = l
		return nil
	})
}

func (c *Controller) mutate(fn func(*session.Settings) error) error {
	c.mu.Lock()
	if c.machine == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if c.stage != StageSelection {
		c.mu.Unlock()
		return ErrWrongStage
	}
	s := c.settings.Clone()
	if err := fn(&s); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := s.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.settings = s
	user := c.user.Name
	c.mu.Unlock()

	c.saveSettings(user, s)
	return nil
}

// normalizeTypes keeps the types offered for g in display order, falling
// back to the first category of g.
func normalizeTypes(g problemgen.Grade, types []problemgen.Category) []problemgen.Category {
	if len(types) == 1 && types[0] == problemgen.CategoryRandom {
		if g.OffersRandom() {
			return types
		}
		return firstCategory(g)
	}
	var kept []problemgen.Category
	for _, cat := range problemgen.CategoriesFor(g) {
		if slices.Contains(types, cat) {
			kept = append(kept, cat)
		}
	}
	if len(kept) == 0 {
		return firstCategory(g)
	}
	return kept
}

func firstCategory(g problemgen.Grade) []problemgen.Category {
	return problemgen.CategoriesFor(g)[:1]
}

// StartQuiz starts a session with the current selection.
func (c *Controller) StartQuiz() error {
	c.mu.Lock()
	m, s, stage := c.machine, c.settings.Clone(), c.stage
	c.mu.Unlock()

	if m == nil {
		return ErrNotLoggedIn
	}
	if stage != StageSelection {
		return ErrWrongStage
	}
	if err := m.StartSession(s); err != nil {
		return err
	}

	c.mu.Lock()
	if c.machine == m && c.stage == StageSelection {
		c.stage = StageQuiz
	}
	c.mu.Unlock()
	return nil
}

// Submit forwards an answer to the running session.
func (c *Controller) Submit(raw string) session.Feedback {
	if m := c.currentMachine(); m != nil {
		return m.SubmitAnswer(raw)
	}
	return session.FeedbackNone
}

// Timeout expires the current problem.
func (c *Controller) Timeout() {
	if m := c.currentMachine(); m != nil {
		m.Timeout()
	}
}

// Quit ends the running session early.
func (c *Controller) Quit() {
	if m := c.currentMachine(); m != nil {
		m.EndSessionEarly(session.ReasonQuit)
	}
}

// ReturnToSelection leaves a finished quiz. It fails while a quiz is still
// running.
func (c *Controller) ReturnToSelection() error {
	m := c.currentMachine()
	if m == nil {
		return ErrNotLoggedIn
	}
	if m.State().Phase == session.PhaseActive {
		return ErrWrongStage
	}
	m.Acknowledge()

	c.mu.Lock()
	if c.machine == m {
		c.stage = StageSelection
	}
	c.mu.Unlock()
	return nil
}

// State returns the running session's snapshot.
func (c *Controller) State() session.View {
	if m := c.currentMachine(); m != nil {
		return m.State()
	}
	return session.View{}
}

// LastResult returns the result of the session shown on the completion
// stage.
func (c *Controller) LastResult() (session.Result, bool) {
	if m := c.currentMachine(); m != nil {
		return m.LastResult()
	}
	return session.Result{}, false
}

// History returns the logged-in user's records, newest first.
func (c *Controller) History() []history.Record {
	c.mu.Lock()
	user, ok := c.user.Name, c.machine != nil
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.ledger.List(user)
}

func (c *Controller) currentMachine() *session.Machine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine
}

// machineHooks forwards machine events to the hooks set with SetHooks,
// looked up at call time.
func (c *Controller) machineHooks() session.Hooks {
	current := func() session.Hooks {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.hooks
	}
	return session.Hooks{
		OnTick: func(d time.Duration) {
			if h := current().OnTick; h != nil {
				h(d)
			}
		},
		OnTimeout: func() {
			if h := current().OnTimeout; h != nil {
				h()
			}
		},
		OnChange: func(v session.View) {
			if h := current().OnChange; h != nil {
				h(v)
			}
		},
		OnFinish: func(r session.Result) {
			c.mu.Lock()
			if c.machine != nil && c.machine.Owner() == r.Owner && c.stage == StageQuiz {
				c.stage = StageCompletion
			}
			h := c.hooks.OnFinish
			c.mu.Unlock()
			if h != nil {
				h(r)
			}
		},
	}
}

// loadSettings reads user's entry from the per-user settings map. Only
// that entry is checked, so another user's bad entry does not affect it.
func (c *Controller) loadSettings(user string) session.Settings {
	raw, ok := c.kv.Entries(SettingsKey)[user]
	if !ok {
		return session.DefaultSettings()
	}
	var s session.Settings
	if err := settingsSchema.Decode(raw, &s); err != nil {
		c.logger.Warn("discarding stored settings", "user", user, "err", err)
		return session.DefaultSettings()
	}
	if err := s.Validate(); err != nil {
		c.logger.Warn("discarding stored settings", "user", user, "err", err)
		return session.DefaultSettings()
	}
	return s
}

func (c *Controller) saveSettings(user string, s session.Settings) {
	raw, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("settings not saved", "user", user, "err", err)
		return
	}
	entries := c.kv.Entries(SettingsKey)
	entries[user] = raw
	if !c.kv.Set(SettingsKey, entries) {
		c.logger.Warn("settings not saved", "user", user)
	}
}
