package postgres

import (
	"context"
	"fmt"

	"github.com/FerDeNetlab/auramarket/config"
	"github.com/FerDeNetlab/auramarket/internal/utils"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool создает пул соединений pgx по настройкам из конфигурации
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connStr, err := utils.GenerateConnectionString(utils.PostgresDSN{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
		PoolSize: cfg.Postgres.PoolSize,
		Timeout:  cfg.Postgres.Timeout,
		AppName:  cfg.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid postgres settings: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return pool, nil
}
