package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const kvTable = "kv"

// createTable creates the key/value table. Raw DDL is used because there is
// no generated ent schema for this table.
func createTable(ctx context.Context, drv *entsql.Driver) error {
	return drv.Exec(ctx, `CREATE TABLE IF NOT EXISTS kv (
		id TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`, []any{}, nil)
}

func (b *SQLiteBackend) Load(ctx context.Context, key string) ([]byte, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("value").
		From(entsql.Table(kvTable)).
		Where(entsql.EQ("id", key)).
		Query()

	rows := &entsql.Rows{}
	if err := b.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query %q: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query %q: %w", key, err)
		}
		return nil, ErrNotFound
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return nil, fmt.Errorf("scan %q: %w", key, err)
	}
	return []byte(value), nil
}

func (b *SQLiteBackend) Save(ctx context.Context, key string, value []byte) error {
	if b.quota > 0 {
		used, err := b.usedExcluding(ctx, key)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > b.quota {
			return ErrQuotaExceeded
		}
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(kvTable).
		Columns("id", "value", "updated_at").
		Values(key, string(value), time.Now().UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := b.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(kvTable).
		Where(entsql.EQ("id", key)).
		Query()

	if err := b.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (b *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("id").
		From(entsql.Table(kvTable)).
		OrderBy("id").
		Query()

	rows := &entsql.Rows{}
	if err := b.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// usedExcluding returns the stored value bytes of every key except key.
func (b *SQLiteBackend) usedExcluding(ctx context.Context, key string) (int64, error) {
	rows := &entsql.Rows{}
	err := b.drv.Query(ctx,
		`SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB))), 0) FROM kv WHERE id <> ?`,
		[]any{key}, rows)
	if err != nil {
		return 0, fmt.Errorf("measure usage: %w", err)
	}
	defer rows.Close()

	var used int64
	if rows.Next() {
		if err := rows.Scan(&used); err != nil {
			return 0, fmt.Errorf("scan usage: %w", err)
		}
	}
	return used, rows.Err()
}
