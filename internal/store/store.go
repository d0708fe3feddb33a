package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLiteBackend is a Backend persisted in a single SQLite table.
// Statements are built with the ent SQL builder and run through the ent driver.
type SQLiteBackend struct {
	db    *sql.DB
	drv   *entsql.Driver
	quota int64
}

var _ Backend = (*SQLiteBackend)(nil)

// SQLiteOption configures a SQLiteBackend.
type SQLiteOption func(*SQLiteBackend)

// WithQuota caps the total number of value bytes the backend will hold.
// Zero means unlimited.
func WithQuota(bytes int64) SQLiteOption {
	return func(b *SQLiteBackend) { b.quota = bytes }
}

// Open creates a new SQLiteBackend connected to the database at dsn.
// It applies recommended pragmas and creates the key/value table.
func Open(dsn string, opts ...SQLiteOption) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := createTable(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	b := &SQLiteBackend{db: db, drv: drv}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (b *SQLiteBackend) DB() *sql.DB {
	return b.db
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.drv.Close()
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ELMATH_DB environment variable
// 2. $XDG_DATA_HOME/elmath/elmath.db
// 3. ~/.local/share/elmath/elmath.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ELMATH_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "elmath", "elmath.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
