// Package identity validates login names and remembers the last user.
package identity

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abhisek/elmath/internal/store"
)

// Store keys.
const (
	KeyUserName   = "math_quiz_user_name"
	KeyRememberMe = "math_quiz_remember_me"
)

// Identity is a logged-in user.
type Identity struct {
	Name     string `json:"name"`
	Remember bool   `json:"remember"`
}

// Reason classifies a rejected name.
type Reason int

const (
	ReasonTooShort Reason = iota + 1
	ReasonTooLong
	ReasonReserved
)

func (r Reason) String() string {
	switch r {
	case ReasonTooShort:
		return "too-short"
	case ReasonTooLong:
		return "too-long"
	case ReasonReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// ValidationError describes why a name was rejected. Message is shown to
// the user as is.
type ValidationError struct {
	Reason  Reason
	Name    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Config holds the name rules.
type Config struct {
	MinNameLength int
	MaxNameLength int

	// Reserved names are rejected regardless of case.
	Reserved []string
}

// DefaultConfig returns the standard name rules.
func DefaultConfig() Config {
	return Config{
		MinNameLength: 2,
		MaxNameLength: 20,
		Reserved:      []string{"admin", "test", "guest"},
	}
}

// NormalizeName trims input and checks it against the rules. Lengths are
// counted in characters, not bytes.
func (c Config) NormalizeName(input string) (string, error) {
	name := strings.TrimSpace(input)
	n := utf8.RuneCountInString(name)
	if n < c.MinNameLength || n > c.MaxNameLength {
		reason := ReasonTooShort
		if n > c.MaxNameLength {
			reason = ReasonTooLong
		}
		return "", &ValidationError{
			Reason:  reason,
			Name:    name,
			Message: fmt.Sprintf("이름은 %d~%d자 사이로 입력해주세요.", c.MinNameLength, c.MaxNameLength),
		}
	}
	if slices.ContainsFunc(c.Reserved, func(r string) bool { return strings.EqualFold(r, name) }) {
		return "", &ValidationError{
			Reason:  ReasonReserved,
			Name:    name,
			Message: "사용할 수 없는 이름입니다.",
		}
	}
	return name, nil
}

// Service tracks the current user. The stored name and remember flag are
// always written and cleared together.
type Service struct {
	kv     *store.KV
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current *Identity
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service over kv.
func New(kv *store.KV, cfg Config, opts ...Option) *Service {
	s := &Service{
		kv:     kv,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the name rules.
func (s *Service) Config() Config { return s.cfg }

// Restore logs in the remembered user, if any. A stored name that no
// longer passes the rules is forgotten.
func (s *Service) Restore() (Identity, bool) {
	if !store.GetOr(s.kv, KeyRememberMe, false) {
		return Identity{}, false
	}
	stored := store.GetOr(s.kv, KeyUserName, "")
	name, err := s.cfg.NormalizeName(stored)
	if err != nil {
		s.logger.Warn("discarding remembered name", "name", stored, "err", err)
		s.forget()
		return Identity{}, false
	}

	id := Identity{Name: name, Remember: true}
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
	s.logger.Info("identity restored", "user", name)
	return id, true
}

// Login validates input and makes it the current user. With remember the
// name is stored for Restore; without it any stored name is cleared.
// Storage failures are logged and do not fail the login.
func (s *Service) Login(input string, remember bool) (Identity, error) {
	name, err := s.cfg.NormalizeName(input)
	if err != nil {
		return Identity{}, err
	}

	if remember {
		if !s.kv.Set(KeyUserName, name) || !s.kv.Set(KeyRememberMe, true) {
			s.logger.Warn("could not remember user", "user", name)
			s.forget()
		}
	} else {
		s.forget()
	}

	id := Identity{Name: name, Remember: remember}
	s.mu.Lock()
	s.current = &id
	s.mu.Unlock()
	s.logger.Info("login", "user", name, "remember", remember)
	return id, nil
}

// Logout clears the current user. A remembered identity stays stored.
func (s *Service) Logout() {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()

	if cur == nil {
		return
	}
	if !cur.Remember {
		s.forget()
	}
	s.logger.Info("logout", "user", cur.Name)
}

// Forget logs out and clears the stored identity.
func (s *Service) Forget() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.forget()
}

// Current returns the logged-in user.
func (s *Service) Current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

func (s *Service) forget() {
	s.kv.Remove(KeyUserName)
	s.kv.Remove(KeyRememberMe)
}
