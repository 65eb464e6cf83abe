package kvstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    bucket TEXT NOT NULL,
    key    TEXT NOT NULL,
    value  BYTEA NOT NULL,
    PRIMARY KEY (bucket, key)
)`

// PostgresBackend persists buckets in a single kv_entries table.
type PostgresBackend struct {
	db *pgxpool.Pool
}

// NewPostgresBackend constructs a Postgres-backed store and creates its table
// when missing.
func NewPostgresBackend(ctx context.Context, db *pgxpool.Pool) (*PostgresBackend, error) {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return nil, err
	}
	return &PostgresBackend{db: db}, nil
}

// Get returns the stored bytes for bucket/key.
func (b *PostgresBackend) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRow(ctx, `SELECT value FROM kv_entries WHERE bucket = $1 AND key = $2`, bucket, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Insert adds a new row, reporting ErrExists on conflict.
func (b *PostgresBackend) Insert(ctx context.Context, bucket, key string, value []byte) error {
	cmd, err := b.db.Exec(ctx, `INSERT INTO kv_entries (bucket, key, value) VALUES ($1, $2, $3)
        ON CONFLICT (bucket, key) DO NOTHING`, bucket, key, value)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// Update rewrites an existing row.
func (b *PostgresBackend) Update(ctx context.Context, bucket, key string, value []byte) error {
	cmd, err := b.db.Exec(ctx, `UPDATE kv_entries SET value = $3 WHERE bucket = $1 AND key = $2`, bucket, key, value)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a row.
func (b *PostgresBackend) Delete(ctx context.Context, bucket, key string) error {
	cmd, err := b.db.Exec(ctx, `DELETE FROM kv_entries WHERE bucket = $1 AND key = $2`, bucket, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Keys lists keys of bucket beginning with prefix.
func (b *PostgresBackend) Keys(ctx context.Context, bucket, prefix string) ([]string, error) {
	rows, err := b.db.Query(ctx, `SELECT key FROM kv_entries
        WHERE bucket = $1 AND starts_with(key, $2)
        ORDER BY key COLLATE "C"`, bucket, prefix)
	if err != nil {
		return nil, err
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return keys, nil
}
