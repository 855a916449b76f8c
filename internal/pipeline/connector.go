package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/persistence"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	"github.com/spec-kit/ticket-warehouse/internal/repository/memstore"
	"github.com/spec-kit/ticket-warehouse/internal/source"
	apperrors "github.com/spec-kit/ticket-warehouse/pkg/util"
)

// Connector opens the connections a single step needs. The returned close
// funcs must be called on every exit path.
type Connector interface {
	Warehouse(ctx context.Context) (repository.Warehouse, func(), error)
	Source(ctx context.Context, system domain.SourceSystem) (source.Querier, func(), error)
}

// PostgresConnector opens a fresh pool per call.
type PostgresConnector struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPostgresConnector instantiates the connector.
func NewPostgresConnector(cfg *config.Config, logger *zap.Logger) *PostgresConnector {
	return &PostgresConnector{cfg: cfg, logger: logger}
}

func (c *PostgresConnector) Warehouse(ctx context.Context) (repository.Warehouse, func(), error) {
	pg, err := persistence.Open(ctx, c.cfg.Warehouse, "warehouse", c.logger)
	if err != nil {
		return nil, func() {}, err
	}
	return repository.NewWarehouse(pg.PoolHandle()), pg.Close, nil
}

func (c *PostgresConnector) Source(ctx context.Context, system domain.SourceSystem) (source.Querier, func(), error) {
	store := "source:" + string(system)
	pgCfg, ok := c.cfg.Source(system.Key())
	if !ok {
		return nil, func() {}, apperrors.NewConnectivityError(store, fmt.Errorf("no connection settings for %s", system))
	}
	pg, err := persistence.Open(ctx, pgCfg, store, c.logger)
	if err != nil {
		return nil, func() {}, err
	}
	return pg.PoolHandle(), pg.Close, nil
}

// DryRunConnector reads real sources but writes to an in-memory warehouse.
type DryRunConnector struct {
	Connector
	Store *memstore.Store
}

func (c *DryRunConnector) Warehouse(context.Context) (repository.Warehouse, func(), error) {
	return c.Store, func() {}, nil
}
