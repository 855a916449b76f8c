package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-warehouse/internal/api/http"
	"github.com/spec-kit/ticket-warehouse/internal/api/http/handlers"
	"github.com/spec-kit/ticket-warehouse/internal/auth"
	"github.com/spec-kit/ticket-warehouse/internal/config"
	"github.com/spec-kit/ticket-warehouse/internal/observability"
	"github.com/spec-kit/ticket-warehouse/internal/persistence"
	"github.com/spec-kit/ticket-warehouse/internal/repository"
	"github.com/spec-kit/ticket-warehouse/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.Open(ctx, cfg.Warehouse, "warehouse", logger)
	if err != nil {
		logger.Fatal("failed to connect warehouse", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Warehouse.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := map[string]handlers.Pinger{"warehouse": pg}
	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	if redis != nil {
		defer redis.Close()
		dependencies["redis"] = redis
	}

	metrics := observability.NewMetrics()
	reportService := service.NewReportService(repository.NewReportRepository(pg.PoolHandle()))

	var authMiddleware *auth.AuthMiddleware
	if cfg.Auth.JWTSecret != "" {
		authMiddleware = auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Auth.JWTSecret, 0))
	} else {
		logger.Warn("AUTH_JWT_SECRET is empty, reports are served without authentication")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Reports:        handlers.NewReportHandler(reportService),
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
