package kvstore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "ghostchain:v1:"

// RedisBackend keeps each bucket in one Redis hash.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an already connected client. An empty prefix selects
// the default key namespace.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) hashKey(bucket string) string {
	return b.prefix + bucket
}

// Get reads a field from the bucket hash.
func (b *RedisBackend) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	value, err := b.client.HGet(ctx, b.hashKey(bucket), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Insert uses HSETNX so a concurrent writer cannot overwrite an existing key.
func (b *RedisBackend) Insert(ctx context.Context, bucket, key string, value []byte) error {
	ok, err := b.client.HSetNX(ctx, b.hashKey(bucket), key, value).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Update overwrites an existing field. The existence check and the write are
// not atomic; callers serialize writers.
func (b *RedisBackend) Update(ctx context.Context, bucket, key string, value []byte) error {
	exists, err := b.client.HExists(ctx, b.hashKey(bucket), key).Result()
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return b.client.HSet(ctx, b.hashKey(bucket), key, value).Err()
}

// Delete removes a field from the bucket hash.
func (b *RedisBackend) Delete(ctx context.Context, bucket, key string) error {
	removed, err := b.client.HDel(ctx, b.hashKey(bucket), key).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// Keys lists the bucket's fields that start with prefix.
func (b *RedisBackend) Keys(ctx context.Context, bucket, prefix string) ([]string, error) {
	fields, err := b.client.HKeys(ctx, b.hashKey(bucket)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(fields))
	for _, field := range fields {
		if strings.HasPrefix(field, prefix) {
			keys = append(keys, field)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
