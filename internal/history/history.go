// Package history keeps each user's quiz results, one record per calendar day.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/abhisek/elmath/internal/store"
)

// StorageKey is the store key holding every user's records.
const StorageKey = "math_quiz_history_all_users"

// DateLayout is the calendar-date format used for Record.Date.
const DateLayout = time.DateOnly

var (
	// ErrPersist is returned when the updated ledger could not be written.
	ErrPersist = errors.New("history: persist failed")

	// ErrInvalidRecord is returned for records that cannot be stored.
	ErrInvalidRecord = errors.New("history: invalid record")
)

// Record is the result of one finished session.
type Record struct {
	Date          string `json:"date"`
	Score         int    `json:"score"`
	TotalProblems int    `json:"totalProblems"`
}

// NewRecord stamps a result with the local calendar date of now.
func NewRecord(now time.Time, score, total int) Record {
	return Record{
		Date:          now.Local().Format(DateLayout),
		Score:         score,
		TotalProblems: total,
	}
}

// Accuracy returns Score/TotalProblems in [0, 1].
func (r Record) Accuracy() float64 {
	if r.TotalProblems <= 0 {
		return 0
	}
	return float64(r.Score) / float64(r.TotalProblems)
}

func (r Record) validate() error {
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidRecord, r.Date)
	}
	if r.Score < 0 || r.TotalProblems < 0 || r.Score > r.TotalProblems {
		return fmt.Errorf("%w: score %d of %d", ErrInvalidRecord, r.Score, r.TotalProblems)
	}
	return nil
}

var recordSchema = &store.Schema{
	Name: "history-record",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"date", "score", "totalProblems"},
		"properties": map[string]any{
			"date":          map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"score":         map[string]any{"type": "integer", "minimum": 0},
			"totalProblems": map[string]any{"type": "integer", "minimum": 0},
		},
	},
}

// Ledger stores per-user records in a store.KV.
type Ledger struct {
	kv     *store.KV
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used by Today.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.clock = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Ledger over kv.
func New(kv *store.KV, opts ...Option) *Ledger {
	l := &Ledger{
		kv:     kv,
		clock:  time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today builds a record dated with the ledger's clock.
func (l *Ledger) Today(score, total int) Record {
	return NewRecord(l.clock(), score, total)
}

// Commit merges rec into user's records. A record with the same date is
// replaced in place; otherwise rec is prepended.
func (l *Ledger) Commit(user string, rec Record) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidRecord)
	}
	if err := rec.validate(); err != nil {
		return err
	}

	entries := l.kv.Entries(StorageKey)
	list := l.decode(user, entries[user])
	if i := slices.IndexFunc(list, func(r Record) bool { return r.Date == rec.Date }); i >= 0 {
		list[i] = rec
	} else {
		list = append([]Record{rec}, list...)
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %v", ErrPersist, user, err)
	}
	entries[user] = raw

	if !l.kv.Set(StorageKey, entries) {
		return fmt.Errorf("%w: user %q", ErrPersist, user)
	}
	l.logger.Info("history committed", "user", user, "date", rec.Date, "score", rec.Score, "total", rec.TotalProblems)
	return nil
}

// List returns user's records, most recent first.
func (l *Ledger) List(user string) []Record {
	user = strings.TrimSpace(user)
	return l.decode(user, l.kv.Entries(StorageKey)[user])
}

// Users returns the names that have at least one record, sorted.
func (l *Ledger) Users() []string {
	entries := l.kv.Entries(StorageKey)
	users := make([]string, 0, len(entries))
	for u, raw := range entries {
		if len(l.decode(u, raw)) > 0 {
			users = append(users, u)
		}
	}
	slices.Sort(users)
	return users
}

// Reset removes every record of user.
func (l *Ledger) Reset(user string) error {
	user = strings.TrimSpace(user)
	entries := l.kv.Entries(StorageKey)
	if _, ok := entries[user]; !ok {
		return nil
	}
	delete(entries, user)
	if !l.kv.Set(StorageKey, entries) {
		return fmt.Errorf("%w: reset %q", ErrPersist, user)
	}
	return nil
}

// ResetAll removes every user's records.
func (l *Ledger) ResetAll() error {
	if !l.kv.Remove(StorageKey) {
		return fmt.Errorf("%w: reset all", ErrPersist)
	}
	return nil
}

// decode returns the records of one user's entry. Records that fail the
// shape check are dropped; the rest are kept in order. Other users' entries
// are never decoded here, so a bad entry cannot hide them.
func (l *Ledger) decode(user string, raw json.RawMessage) []Record {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		l.logger.Warn("discarding malformed history", "user", user, "err", err)
		return nil
	}
	recs := make([]Record, 0, len(items))
	for i, item := range items {
		var rec Record
		if err := recordSchema.Decode(item, &rec); err != nil {
			l.logger.Warn("skipping malformed history record", "user", user, "index", i, "err", err)
			continue
		}
		if err := rec.validate(); err != nil {
			l.logger.Warn("skipping invalid history record", "user", user, "index", i, "err", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}
