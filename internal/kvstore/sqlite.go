package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    bucket TEXT NOT NULL,
    key    TEXT NOT NULL,
    value  BLOB NOT NULL,
    PRIMARY KEY (bucket, key)
)`

// SQLiteBackend stores buckets in a local SQLite file.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// The connection pool is limited to one connection since SQLite allows a
// single writer.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", strings.TrimSpace(stmt), err)
		}
	}
	return &SQLiteBackend{db: db}, nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *SQLiteBackend) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE bucket = ? AND key = ?`, bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *SQLiteBackend) Insert(ctx context.Context, bucket, key string, value []byte) error {
	res, err := b.db.ExecContext(ctx, `INSERT INTO kv_entries (bucket, key, value) VALUES (?, ?, ?)
        ON CONFLICT (bucket, key) DO NOTHING`, bucket, key, value)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrExists)
}

func (b *SQLiteBackend) Update(ctx context.Context, bucket, key string, value []byte) error {
	res, err := b.db.ExecContext(ctx, `UPDATE kv_entries SET value = ? WHERE bucket = ? AND key = ?`, value, bucket, key)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNotFound)
}

func (b *SQLiteBackend) Delete(ctx context.Context, bucket, key string) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE bucket = ? AND key = ?`, bucket, key)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNotFound)
}

func (b *SQLiteBackend) Keys(ctx context.Context, bucket, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM kv_entries
        WHERE bucket = ? AND substr(key, 1, length(?)) = ?
        ORDER BY key`, bucket, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func requireAffected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
