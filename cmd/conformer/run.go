package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/events"
	"github.com/spec-kit/ticket-warehouse/internal/observability"
	"github.com/spec-kit/ticket-warehouse/internal/persistence"
	"github.com/spec-kit/ticket-warehouse/internal/pipeline"
	"github.com/spec-kit/ticket-warehouse/internal/repository/memstore"
	"github.com/spec-kit/ticket-warehouse/internal/service"
	"github.com/spec-kit/ticket-warehouse/internal/worker"
)

var runOpts struct {
	sources []string
	dryRun  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Conform one or more sources into the warehouse",
	Long: `Run the date-time, responsible-party, status, interaction and fact steps for each source in order.
The run stops at the first failed step. Exit status is 0 on success, 2 when a database
could not be reached and 1 for any other failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
		return conform(cmd, cfg, logger)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runOpts.sources, "source", nil, "source system to conform (octa, sults); repeatable, defaults to all in order")
	runCmd.Flags().BoolVar(&runOpts.dryRun, "dry-run", false, "read the sources but write to an in-memory warehouse")
}

func conform(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) error {
	ctx := cmd.Context()

	systems, err := parseSources(runOpts.sources, cfg)
	if err != nil {
		return err
	}
	locale, err := domain.ParseCalendarLocale(cfg.Pipeline.CalendarLocale)
	if err != nil {
		return err
	}

	if cfg.Warehouse.RunMigrations && !runOpts.dryRun {
		if err := migrateWarehouse(ctx, cfg, logger); err != nil {
			return err
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	metrics.Subscribe(dispatcher)
	notifier := worker.StartNotificationWorker(
		context.WithoutCancel(ctx), dispatcher, service.NewNotificationService(logger, cfg.Notification), logger)
	defer notifier.Stop()

	var locker pipeline.Locker
	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	if redis != nil {
		defer redis.Close()
		locker = redis
	}

	var connector pipeline.Connector = pipeline.NewPostgresConnector(cfg, logger)
	if runOpts.dryRun {
		connector = &pipeline.DryRunConnector{Connector: connector, Store: memstore.New()}
	}

	orchestrator := pipeline.NewOrchestrator(dispatcher, locker, pipeline.LockConfig{
		Key:   cfg.Pipeline.LockKey,
		TTL:   cfg.Pipeline.LockTTL(),
		Retry: cfg.Pipeline.LockRetry(),
	}, logger)
	builder := pipeline.NewStepBuilder(connector, locale, cfg.Pipeline.VocabularyDir, logger)
	summary, runErr := pipeline.NewRunner(orchestrator, builder, dispatcher, logger, runOpts.dryRun).Run(ctx, systems)

	notifier.Stop()
	if cfg.Metrics.PushgatewayURL != "" {
		if err := metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Warn("pushing metrics", zap.Error(err))
		}
	}

	var failed *events.StepPayload
	var stepErr *pipeline.StepError
	if errors.As(runErr, &stepErr) {
		for i := range summary.Steps {
			if summary.Steps[i].Error != "" {
				failed = &summary.Steps[i]
			}
		}
		if stepErr.Output != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "--- output of %s step for %s ---\n%s", stepErr.Step, stepErr.Source, stepErr.Output)
		}
	}
	observability.RenderSummary(cmd.OutOrStdout(), summary, failed)

	if runErr != nil {
		return reportedError{err: runErr}
	}
	return nil
}
