package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key is not present in a bucket.
	ErrNotFound = errors.New("key not found")

	// ErrExists is returned by Insert/Init when the key is already present.
	ErrExists = errors.New("key already exists")
)

// Backend is the byte-level storage contract implemented by the memory, Redis,
// Postgres and SQLite stores. Keys are grouped in named buckets.
type Backend interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Insert(ctx context.Context, bucket, key string, value []byte) error
	Update(ctx context.Context, bucket, key string, value []byte) error
	Delete(ctx context.Context, bucket, key string) error
	// Keys returns the keys in bucket starting with prefix, in ascending order.
	Keys(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Zone pairs a durable backend with a detached one. Registries that need not
// survive a restart are allocated from Detached.
type Zone struct {
	Durable  Backend
	Detached Backend
}

// NewZone returns a zone whose detached side is always an in-memory store.
func NewZone(durable Backend) Zone {
	if durable == nil {
		durable = NewMemory()
	}
	return Zone{Durable: durable, Detached: NewMemory()}
}

// Ephemeral returns a zone where both sides live in memory.
func Ephemeral() Zone {
	return Zone{Durable: NewMemory(), Detached: NewMemory()}
}
