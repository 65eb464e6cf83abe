package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemory creates a concurrency-safe in-memory backend. Contents are lost
// when the process exits.
func NewMemory() Backend {
	return &memoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (b *memoryBackend) Get(_ context.Context, bucket, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (b *memoryBackend) Insert(_ context.Context, bucket, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries, ok := b.buckets[bucket]
	if !ok {
		entries = make(map[string][]byte)
		b.buckets[bucket] = entries
	}
	if _, exists := entries[key]; exists {
		return ErrExists
	}
	entries[key] = append([]byte(nil), value...)
	return nil
}

func (b *memoryBackend) Update(_ context.Context, bucket, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.buckets[bucket]
	if _, exists := entries[key]; !exists {
		return ErrNotFound
	}
	entries[key] = append([]byte(nil), value...)
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.buckets[bucket]
	if _, exists := entries[key]; !exists {
		return ErrNotFound
	}
	delete(entries, key)
	return nil
}

func (b *memoryBackend) Keys(_ context.Context, bucket, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.buckets[bucket]))
	for key := range b.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
