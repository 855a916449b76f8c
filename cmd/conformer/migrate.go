package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the warehouse schema",
	Long:  `Apply the embedded warehouse migrations. Every statement is idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return migrateWarehouse(cmd.Context(), cfg, logger)
	},
}

func migrateWarehouse(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.Open(ctx, cfg.Warehouse, "warehouse", logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
}
