package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool  *pgxpool.Pool
	store string
}

// Open establishes a connection pool for the named store. Any failure to reach
// the database is reported as a connectivity error naming the store.
func Open(ctx context.Context, cfg config.PostgresConfig, store string, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, apperrors.NewConnectivityError(store, errors.New("no DSN configured"))
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, apperrors.NewConnectivityError(store, err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperrors.NewConnectivityError(store, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewConnectivityError(store, err)
	}

	logger.Debug("connected to postgres", zap.String("store", store))
	return &Postgres{Pool: pool, store: store}, nil
}

// Store names the database this handle points at.
func (p *Postgres) Store() string {
	if p == nil {
		return ""
	}
	return p.store
}

// Ping verifies the pool can still reach the database.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errors.New("postgres pool not configured")
	}
	if err := p.Pool.Ping(ctx); err != nil {
		return apperrors.NewConnectivityError(p.store, err)
	}
	return nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}
