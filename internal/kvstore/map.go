package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Map is a typed view over one bucket of a Backend. Values are encoded as JSON.
type Map[V any] struct {
	backend Backend
	bucket  string
}

// NewMap binds a typed map to bucket on backend.
func NewMap[V any](backend Backend, bucket string) *Map[V] {
	return &Map[V]{backend: backend, bucket: bucket}
}

// Get returns the value stored under key or ErrNotFound.
func (m *Map[V]) Get(ctx context.Context, key string) (V, error) {
	var out V
	raw, err := m.backend.Get(ctx, m.bucket, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s/%s: %w", m.bucket, key, err)
	}
	return out, nil
}

// Has reports whether key is present.
func (m *Map[V]) Has(ctx context.Context, key string) (bool, error) {
	_, err := m.backend.Get(ctx, m.bucket, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Init stores value under a key that must not exist yet.
func (m *Map[V]) Init(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", m.bucket, key, err)
	}
	return m.backend.Insert(ctx, m.bucket, key, raw)
}

// Set replaces the value under an existing key.
func (m *Map[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", m.bucket, key, err)
	}
	return m.backend.Update(ctx, m.bucket, key, raw)
}

// Put stores value whether or not key already exists.
func (m *Map[V]) Put(ctx context.Context, key string, value V) error {
	err := m.Set(ctx, key, value)
	if errors.Is(err, ErrNotFound) {
		return m.Init(ctx, key, value)
	}
	return err
}

// Delete removes key or returns ErrNotFound.
func (m *Map[V]) Delete(ctx context.Context, key string) error {
	return m.backend.Delete(ctx, m.bucket, key)
}

// Keys lists keys with the given prefix in ascending order.
func (m *Map[V]) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.backend.Keys(ctx, m.bucket, prefix)
}

// Set is a membership-only container over one bucket.
type Set struct {
	m *Map[struct{}]
}

// NewSet binds a set to bucket on backend.
func NewSet(backend Backend, bucket string) *Set {
	return &Set{m: NewMap[struct{}](backend, bucket)}
}

// Has reports membership.
func (s *Set) Has(ctx context.Context, member string) (bool, error) {
	return s.m.Has(ctx, member)
}

// Add inserts member; adding an existing member is a no-op.
func (s *Set) Add(ctx context.Context, member string) error {
	err := s.m.Init(ctx, member, struct{}{})
	if errors.Is(err, ErrExists) {
		return nil
	}
	return err
}

// Delete removes member or returns ErrNotFound.
func (s *Set) Delete(ctx context.Context, member string) error {
	return s.m.Delete(ctx, member)
}

// Members lists all members in ascending order.
func (s *Set) Members(ctx context.Context) ([]string, error) {
	return s.m.Keys(ctx, "")
}
