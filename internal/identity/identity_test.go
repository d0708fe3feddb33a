package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/elmath/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.KV) {
	t.Helper()
	kv := store.NewKV(store.NewMemoryBackend(0))
	return New(kv, DefaultConfig()), kv
}

func TestLogin_NameRules(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		input  string
		want   string
		reason Reason
	}{
		{"ab", "ab", 0},
		{"  민수  ", "민수", 0},
		{strings.Repeat("가", 20), strings.Repeat("가", 20), 0},
		{"a", "", ReasonTooShort},
		{"   a   ", "", ReasonTooShort},
		{"", "", ReasonTooShort},
		{strings.Repeat("x", 21), "", ReasonTooLong},
		{"admin", "", ReasonReserved},
		{"GUEST", "", ReasonReserved},
		{" Test ", "", ReasonReserved},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			id, err := svc.Login(tc.input, false)
			if tc.reason == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.want, id.Name)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "err = %v", err)
			assert.Equal(t, tc.reason, verr.Reason)
			assert.NotEmpty(t, verr.Message)
		})
	}
}

func TestLogin_Messages(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login("a", false)
	assert.EqualError(t, err, "이름은 2~20자 사이로 입력해주세요.")

	_, err = svc.Login("admin", false)
	assert.EqualError(t, err, "사용할 수 없는 이름입니다.")
}

func TestRememberedLoginRestores(t *testing.T) {
	svc, kv := newTestService(t)

	_, err := svc.Login("민수", true)
	require.NoError(t, err)

	// A fresh service over the same store, as on the next launch.
	next := New(kv, DefaultConfig())
	id, ok := next.Restore()
	require.True(t, ok)
	assert.Equal(t, Identity{Name: "민수", Remember: true}, id)

	cur, ok := next.Current()
	require.True(t, ok)
	assert.Equal(t, "민수", cur.Name)
}

func TestUnrememberedLoginClearsStoredName(t *testing.T) {
	svc, kv := newTestService(t)

	_, err := svc.Login("민수", true)
	require.NoError(t, err)
	_, err = svc.Login("지영", false)
	require.NoError(t, err)

	assert.Equal(t, "", store.GetOr(kv, KeyUserName, ""))
	assert.False(t, store.GetOr(kv, KeyRememberMe, false))

	_, ok := New(kv, DefaultConfig()).Restore()
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	t.Run("remembered identity stays stored", func(t *testing.T) {
		svc, kv := newTestService(t)
		_, err := svc.Login("민수", true)
		require.NoError(t, err)

		svc.Logout()
		_, ok := svc.Current()
		assert.False(t, ok)
		assert.Equal(t, "민수", store.GetOr(kv, KeyUserName, ""))
		assert.True(t, store.GetOr(kv, KeyRememberMe, false))
	})

	t.Run("forget clears both", func(t *testing.T) {
		svc, kv := newTestService(t)
		_, err := svc.Login("민수", true)
		require.NoError(t, err)

		svc.Forget()
		assert.Equal(t, "", store.GetOr(kv, KeyUserName, ""))
		assert.False(t, store.GetOr(kv, KeyRememberMe, false))
	})

	t.Run("logout without login", func(t *testing.T) {
		svc, _ := newTestService(t)
		svc.Logout()
		_, ok := svc.Current()
		assert.False(t, ok)
	})
}

func TestRestore_InvalidStoredName(t *testing.T) {
	backend := store.NewMemoryBackend(0)
	ctx := context.Background()
	require.NoError(t, backend.Save(ctx, KeyRememberMe, []byte(`true`)))
	require.NoError(t, backend.Save(ctx, KeyUserName, []byte(`"admin"`)))

	kv := store.NewKV(backend)
	_, ok := New(kv, DefaultConfig()).Restore()
	assert.False(t, ok)
	assert.False(t, store.GetOr(kv, KeyRememberMe, false), "bad identity is forgotten")
}

func TestRestore_CorruptFlag(t *testing.T) {
	backend := store.NewMemoryBackend(0)
	require.NoError(t, backend.Save(context.Background(), KeyRememberMe, []byte(`"yes"`)))

	_, ok := New(store.NewKV(backend), DefaultConfig()).Restore()
	assert.False(t, ok)
}

func TestLogin_StorageUnavailable(t *testing.T) {
	svc := New(store.NewKV(store.NewUnavailable()), DefaultConfig())

	id, err := svc.Login("민수", true)
	require.NoError(t, err, "storage failures must not block login")
	assert.Equal(t, "민수", id.Name)

	_, ok := svc.Restore()
	assert.False(t, ok)
}
