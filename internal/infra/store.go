package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ghostchain/internal/config"
	"github.com/congo-pay/ghostchain/internal/kvstore"
)

// Resources are the external connections a running node holds.
type Resources struct {
	Backend kvstore.Backend
	DB      *pgxpool.Pool
	Cache   *redis.Client
	closers []func() error
}

// Open connects Redis when configured and builds the store backend selected
// by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Resources, error) {
	res := &Resources{}

	if cfg.RedisURL != "" {
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		res.Cache = client
		res.closers = append(res.closers, client.Close)
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		res.Backend = kvstore.NewMemory()
	case config.BackendRedis:
		if res.Cache == nil {
			return nil, fmt.Errorf("redis store backend needs REDIS_URL")
		}
		res.Backend = kvstore.NewRedisBackend(res.Cache, "")
	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}
		res.DB = pool
		res.closers = append(res.closers, func() error { pool.Close(); return nil })
		backend, err := kvstore.NewPostgresBackend(ctx, pool)
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}
		res.Backend = backend
	case config.BackendSQLite:
		backend, err := kvstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}
		res.Backend = backend
		res.closers = append(res.closers, backend.Close)
	default:
		return nil, errors.Join(fmt.Errorf("unknown store backend %q", cfg.StoreBackend), res.Close())
	}

	logger.Info("store opened",
		slog.String("backend", cfg.StoreBackend),
		slog.Bool("redis", res.Cache != nil))
	return res, nil
}

// Close releases connections in reverse order of opening.
func (r *Resources) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
