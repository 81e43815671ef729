package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coach-llm/internal/config"
)

const (
	maxConns       = 10
	minConns       = 1
	connLifetime   = 30 * time.Minute
	connIdleTime   = 5 * time.Minute
	healthInterval = 30 * time.Second
	connectTimeout = 5 * time.Second
)

// NewPool construye el pool de conexiones y verifica conectividad antes de
// devolverlo, para que credenciales malas fallen en el arranque y no en la
// primera query.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	poolCfg.MaxConnLifetime = connLifetime
	poolCfg.MaxConnIdleTime = connIdleTime
	poolCfg.HealthCheckPeriod = healthInterval
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
