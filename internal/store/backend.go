package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned by Backend.Load when the key is absent.
	ErrNotFound = errors.New("store: key not found")

	// ErrQuotaExceeded is returned by Backend.Save when the write would
	// exceed the backend's storage quota.
	ErrQuotaExceeded = errors.New("store: quota exceeded")

	// ErrUnavailable is returned when the storage medium cannot be used.
	ErrUnavailable = errors.New("store: storage unavailable")
)

// Backend is a raw byte-oriented key/value medium.
type Backend interface {
	// Load returns the stored bytes for key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the value stored at key.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)
}

// MemoryBackend is an in-process Backend. It is the fallback medium when the
// database cannot be opened and the default backend in tests.
type MemoryBackend struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty MemoryBackend. quota caps the total value
// bytes held (0 = unlimited).
func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := 0
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used+len(value) > m.quota {
			return ErrQuotaExceeded
		}
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// unavailableBackend fails every call, emulating an absent storage medium.
type unavailableBackend struct{}

// NewUnavailable returns a Backend on which every operation fails with
// ErrUnavailable.
func NewUnavailable() Backend {
	return unavailableBackend{}
}

func (unavailableBackend) Load(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (unavailableBackend) Save(context.Context, string, []byte) error   { return ErrUnavailable }
func (unavailableBackend) Delete(context.Context, string) error         { return ErrUnavailable }
func (unavailableBackend) Keys(context.Context) ([]string, error)       { return nil, ErrUnavailable }
