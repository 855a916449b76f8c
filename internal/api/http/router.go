package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-warehouse/internal/api/http/handlers"
	"github.com/spec-kit/ticket-warehouse/internal/auth"
	"github.com/spec-kit/ticket-warehouse/internal/domain"
	"github.com/spec-kit/ticket-warehouse/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Reports *handlers.ReportHandler
	Metrics *observability.Metrics
	// AuthMiddleware protects /reports when set.
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	reports := app.Group("/reports")
	if cfg.AuthMiddleware != nil {
		reports.Use(cfg.AuthMiddleware.Handle, auth.RequireScope(domain.ScopeReportsRead))
	}
	reports.Get("/filters", cfg.Reports.Filters)
	reports.Get("/tickets", cfg.Reports.Tickets)
}
