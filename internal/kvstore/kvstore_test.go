package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// runBackendSuite exercises the contract every backend must honor.
func runBackendSuite(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := backend.Get(ctx, "suite", "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InsertOnce", func(t *testing.T) {
		require.NoError(t, backend.Insert(ctx, "suite", "a", []byte("1")))
		require.ErrorIs(t, backend.Insert(ctx, "suite", "a", []byte("2")), ErrExists)

		got, err := backend.Get(ctx, "suite", "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), got)
	})

	t.Run("UpdateRequiresKey", func(t *testing.T) {
		require.ErrorIs(t, backend.Update(ctx, "suite", "nope", []byte("x")), ErrNotFound)
		require.NoError(t, backend.Update(ctx, "suite", "a", []byte("3")))

		got, err := backend.Get(ctx, "suite", "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), got)
	})

	t.Run("KeysByPrefix", func(t *testing.T) {
		for _, k := range []string{"p/2", "p/1", "q/1"} {
			require.NoError(t, backend.Insert(ctx, "suite", k, []byte("v")))
		}
		keys, err := backend.Keys(ctx, "suite", "p/")
		require.NoError(t, err)
		assert.Equal(t, []string{"p/1", "p/2"}, keys)

		other, err := backend.Keys(ctx, "other-bucket", "")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "suite", "a"))
		require.ErrorIs(t, backend.Delete(ctx, "suite", "a"), ErrNotFound)
		_, err := backend.Get(ctx, "suite", "a")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryBackend(t *testing.T) {
	runBackendSuite(t, NewMemory())
}

func TestRedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	runBackendSuite(t, NewRedisBackend(client, "test:"))
	assert.True(t, mr.Exists("test:suite"))
}

func TestSQLiteBackend(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer backend.Close()

	runBackendSuite(t, backend)
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `DROP TABLE IF EXISTS kv_entries`)
	require.NoError(t, err)

	backend, err := NewPostgresBackend(ctx, pool)
	require.NoError(t, err)
	runBackendSuite(t, backend)
}

func TestTypedMap(t *testing.T) {
	ctx := context.Background()
	m := NewMap[record](NewMemory(), "records")

	require.NoError(t, m.Init(ctx, "x", record{Name: "x", Count: 1}))
	require.ErrorIs(t, m.Init(ctx, "x", record{}), ErrExists)
	require.ErrorIs(t, m.Set(ctx, "y", record{}), ErrNotFound)

	require.NoError(t, m.Put(ctx, "y", record{Name: "y"}))
	require.NoError(t, m.Put(ctx, "y", record{Name: "y", Count: 7}))

	got, err := m.Get(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, record{Name: "y", Count: 7}, got)

	ok, err := m.Has(ctx, "z")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetMembership(t *testing.T) {
	ctx := context.Background()
	s := NewSet(NewMemory(), "members")

	require.NoError(t, s.Add(ctx, "b"))
	require.NoError(t, s.Add(ctx, "a"))
	require.NoError(t, s.Add(ctx, "a"))

	members, err := s.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	require.NoError(t, s.Delete(ctx, "a"))
	ok, err := s.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestZoneDetachedIsMemory(t *testing.T) {
	durable := NewMemory()
	zone := NewZone(durable)
	assert.Same(t, durable, zone.Durable)
	assert.NotSame(t, zone.Durable, zone.Detached)
}
