package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/elmath/internal/store"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 15, 4, 5, 0, time.Local)
}

func newTestLedger(t *testing.T) (*Ledger, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend(0)
	return New(store.NewKV(backend), WithClock(func() time.Time { return day(3) })), backend
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(day(9), 7, 30)
	assert.Equal(t, Record{Date: "2026-03-09", Score: 7, TotalProblems: 30}, rec)
	assert.InDelta(t, 7.0/30.0, rec.Accuracy(), 1e-9)
	assert.Zero(t, Record{}.Accuracy())
}

func TestCommit_SameDateReplaces(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.Commit("Alice", l.Today(5, 30)))
	require.NoError(t, l.Commit("Alice", l.Today(8, 30)))

	got := l.List("Alice")
	require.Len(t, got, 1)
	assert.Equal(t, Record{Date: "2026-03-03", Score: 8, TotalProblems: 30}, got[0])
}

func TestCommit_NewDatePrepends(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.Commit("Alice", NewRecord(day(1), 1, 30)))
	require.NoError(t, l.Commit("Alice", NewRecord(day(2), 2, 30)))
	require.NoError(t, l.Commit("Alice", NewRecord(day(1), 9, 30)))

	got := l.List("Alice")
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-02", got[0].Date)
	assert.Equal(t, "2026-03-01", got[1].Date)
	assert.Equal(t, 9, got[1].Score, "same-date record replaced in place")
}

func TestCommit_UsersAreIsolated(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.Commit("Alice", l.Today(5, 30)))
	require.NoError(t, l.Commit("Bob", l.Today(3, 30)))

	assert.Len(t, l.List("Alice"), 1)
	assert.Len(t, l.List("Bob"), 1)
	assert.Empty(t, l.List("Carol"))
	assert.Equal(t, []string{"Alice", "Bob"}, l.Users())
}

func TestCommit_RejectsInvalid(t *testing.T) {
	l, _ := newTestLedger(t)

	tests := []struct {
		name string
		user string
		rec  Record
	}{
		{"empty user", " ", Record{Date: "2026-03-03", Score: 1, TotalProblems: 2}},
		{"bad date", "Alice", Record{Date: "3/3/2026", Score: 1, TotalProblems: 2}},
		{"negative score", "Alice", Record{Date: "2026-03-03", Score: -1, TotalProblems: 2}},
		{"score above total", "Alice", Record{Date: "2026-03-03", Score: 3, TotalProblems: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := l.Commit(tc.user, tc.rec)
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestCommit_PersistFailure(t *testing.T) {
	l := New(store.NewKV(store.NewUnavailable()))
	err := l.Commit("Alice", NewRecord(day(1), 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.Empty(t, l.List("Alice"))
}

func TestLoad_MalformedLedgerReadsEmpty(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := context.Background()

	blobs := []string{
		`{not json`,
		`[1, 2, 3]`,
		`{"Alice": [{"date": "yesterday", "score": 1, "totalProblems": 2}]}`,
		`{"Alice": [{"score": 1}]}`,
	}
	for _, blob := range blobs {
		require.NoError(t, backend.Save(ctx, StorageKey, []byte(blob)))
		assert.Empty(t, l.List("Alice"), blob)
	}

	// A malformed ledger is replaced by the next commit.
	require.NoError(t, l.Commit("Alice", l.Today(4, 30)))
	assert.Len(t, l.List("Alice"), 1)
}

func TestCommit_KeepsOtherUsersWhenOneIsMalformed(t *testing.T) {
	l, backend := newTestLedger(t)
	ctx := context.Background()

	carol := `[{"date":"2026. 5. 1.","score":3,"totalProblems":30}]`
	blob := `{"Bob":[` +
		`{"date":"2026-03-02","score":3,"totalProblems":30},` +
		`{"date":"2026-03-01","score":2,"totalProblems":30},` +
		`{"date":"2026-02-28","score":1,"totalProblems":30}],` +
		`"Carol":` + carol + `,` +
		`"Dave":[{"date":"2026-03-01","score":9,"totalProblems":5},{"date":"2026-02-27","score":4,"totalProblems":5}]}`
	require.NoError(t, backend.Save(ctx, StorageKey, []byte(blob)))

	assert.Len(t, l.List("Bob"), 3)
	assert.Empty(t, l.List("Carol"))
	assert.Equal(t, []Record{{Date: "2026-02-27", Score: 4, TotalProblems: 5}}, l.List("Dave"),
		"only the record with score above total is dropped")
	assert.Equal(t, []string{"Bob", "Dave"}, l.Users())

	require.NoError(t, l.Commit("Alice", l.Today(4, 30)))

	assert.Len(t, l.List("Alice"), 1)
	assert.Len(t, l.List("Bob"), 3)

	var stored map[string]json.RawMessage
	raw, err := backend.Load(ctx, StorageKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.JSONEq(t, carol, string(stored["Carol"]), "unreadable entries are written back unchanged")
	assert.Len(t, stored, 4)
}

func TestReset(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Commit("Alice", l.Today(5, 30)))
	require.NoError(t, l.Commit("Bob", l.Today(3, 30)))

	require.NoError(t, l.Reset("Alice"))
	assert.Empty(t, l.List("Alice"))
	assert.Len(t, l.List("Bob"), 1)

	require.NoError(t, l.Reset("nobody"))

	require.NoError(t, l.ResetAll())
	assert.Empty(t, l.Users())
}

func TestList_ReturnsCopy(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Commit("Alice", l.Today(5, 30)))

	got := l.List("Alice")
	got[0].Score = 99
	assert.Equal(t, 5, l.List("Alice")[0].Score)
}
