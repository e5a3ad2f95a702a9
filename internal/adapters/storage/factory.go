package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/FerDeNetlab/auramarket/config"
	"github.com/FerDeNetlab/auramarket/internal/adapters/cache"
	"github.com/FerDeNetlab/auramarket/internal/infrastructure/postgres"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/FerDeNetlab/auramarket/pkg/tx"
)

// New создает хранилище по storage.driver, применяет схему, при необходимости
// заполняет демо-данными и оборачивает в CachedStore
func New(ctx context.Context, cfg *config.Config, logger interfaces.LoggerPort) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store, err = newPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		store, err = NewSQLiteStore(ctx, cfg.SQLite.Path, logger)
	case config.DriverMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Seed {
		if err := SeedDemoData(ctx, store, logger); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	pageCache, err := newCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("Хранилище инициализировано", "driver", cfg.Storage.Driver, "redis", cfg.Redis.Enabled)
	return NewCachedStore(store, pageCache, cfg.Redis.DefaultExpiration, logger), nil
}

func newPostgres(ctx context.Context, cfg *config.Config, logger interfaces.LoggerPort) (*PostgresStore, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := NewPostgresStore(ctx, pool, tx.NewTxManager(pool, logger), logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.Postgres.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store, nil
}

func newCache(ctx context.Context, cfg *config.Config) (interfaces.CachePort, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cfg.Redis.DefaultExpiration, 10*time.Minute), nil
	}

	redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.ConnectTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolTimeout:  cfg.Redis.PoolTimeout,
		IdleTimeout:  cfg.Redis.IdleTimeout,
		Namespace:    cfg.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return redisCache, nil
}
