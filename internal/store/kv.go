package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"
)

// opTimeout bounds a single backend call. It matches the SQLite busy timeout.
const opTimeout = 5 * time.Second

// KV is the JSON key/value adapter used by the rest of the application.
// None of its methods panic or return storage errors: reads fall back to the
// caller's default and writes report success as a bool. Failures are logged.
type KV struct {
	backend  Backend
	logger   *slog.Logger
	volatile []string
}

// KVOption configures a KV.
type KVOption func(*KV)

// WithLogger sets the logger used to report storage failures.
func WithLogger(l *slog.Logger) KVOption {
	return func(kv *KV) {
		if l != nil {
			kv.logger = l
		}
	}
}

// WithVolatile names keys that may be dropped to make room when a write
// exceeds the storage quota.
func WithVolatile(keys ...string) KVOption {
	return func(kv *KV) { kv.volatile = append(kv.volatile, keys...) }
}

// NewKV wraps backend with JSON encoding and failure tolerance.
func NewKV(backend Backend, opts ...KVOption) *KV {
	kv := &KV{
		backend: backend,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(kv)
	}
	return kv
}

// OpenKV opens the SQLite database at path. If it cannot be opened, the
// returned KV is backed by memory (nothing will persist) and the open error
// is returned alongside it so the caller can tell the user.
func OpenKV(path string, logger *slog.Logger, opts ...KVOption) (*KV, error) {
	opts = append([]KVOption{WithLogger(logger)}, opts...)
	backend, err := Open(path)
	if err != nil {
		kv := NewKV(NewMemoryBackend(0), opts...)
		kv.logger.Warn("storage unavailable, using memory", "path", path, "err", err)
		return kv, fmt.Errorf("open store %s: %w", path, err)
	}
	return NewKV(backend, opts...), nil
}

// Close releases the backend if it holds resources.
func (kv *KV) Close() error {
	if c, ok := kv.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Get decodes the value stored at key into dst, which must be a non-nil
// pointer. It returns false and leaves dst untouched when the key is missing,
// holds JSON null, cannot be decoded into dst, or the backend fails.
func (kv *KV) Get(key string, dst any) bool {
	raw, ok := kv.load(key)
	if !ok {
		return false
	}
	return kv.decode(key, raw, dst)
}

// Entries reads key as a JSON object and returns its members undecoded, so
// callers can check and rewrite one member without touching the others. A
// missing value, or one that is not an object, reads as an empty map.
func (kv *KV) Entries(key string) map[string]json.RawMessage {
	var entries map[string]json.RawMessage
	if !kv.Get(key, &entries) || entries == nil {
		return make(map[string]json.RawMessage)
	}
	return entries
}

// GetOr returns the value stored at key, or def when Get would fail.
func GetOr[T any](kv *KV, key string, def T) T {
	var v T
	if !kv.Get(key, &v) {
		return def
	}
	return v
}

// Set encodes value as JSON and stores it at key. It returns false when
// encoding fails or the backend rejects the write; the previous value is
// left as it was. A quota failure is retried once after dropping the
// volatile keys.
func (kv *KV) Set(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		kv.logger.Warn("encode failed", "key", key, "err", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err = kv.backend.Save(ctx, key, data)
	if errors.Is(err, ErrQuotaExceeded) && kv.evictVolatile(ctx, key) {
		err = kv.backend.Save(ctx, key, data)
	}
	if err != nil {
		kv.logger.Warn("write failed", "key", key, "err", err)
		return false
	}
	return true
}

// Remove deletes key. It returns false when the backend fails.
func (kv *KV) Remove(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := kv.backend.Delete(ctx, key); err != nil {
		kv.logger.Warn("remove failed", "key", key, "err", err)
		return false
	}
	return true
}

// Clear removes every key. It returns false if any deletion fails.
func (kv *KV) Clear() bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	keys, err := kv.backend.Keys(ctx)
	if err != nil {
		kv.logger.Warn("list keys failed", "err", err)
		return false
	}
	ok := true
	for _, k := range keys {
		if err := kv.backend.Delete(ctx, k); err != nil {
			kv.logger.Warn("remove failed", "key", k, "err", err)
			ok = false
		}
	}
	return ok
}

func (kv *KV) load(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	raw, err := kv.backend.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			kv.logger.Warn("read failed", "key", key, "err", err)
		}
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// decode unmarshals into a fresh value so a failed decode never leaves dst
// half-written.
func (kv *KV) decode(key string, raw []byte, dst any) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		kv.logger.Warn("corrupt entry", "key", key, "err", err)
		return false
	}
	rv.Elem().Set(tmp.Elem())
	return true
}

// evictVolatile removes the volatile keys other than keep. It reports
// whether anything was removed.
func (kv *KV) evictVolatile(ctx context.Context, keep string) bool {
	removed := false
	for _, k := range kv.volatile {
		if k == keep {
			continue
		}
		if _, err := kv.backend.Load(ctx, k); err != nil {
			continue
		}
		if err := kv.backend.Delete(ctx, k); err == nil {
			kv.logger.Info("evicted volatile key", "key", k)
			removed = true
		}
	}
	return removed
}
