package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/request-tracker/internal/api/http/handlers"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	app.Post("/auth/token", cfg.Auth.IssueToken)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAgent())

	requests := api.Group("/requests")
	requests.Get("/", cfg.Requests.ListRequests)
	requests.Post("/", cfg.Requests.CreateRequest)
	requests.Post("/check-escalations", cfg.Requests.CheckEscalations)
	requests.Get("/check-escalations", cfg.Requests.CheckEscalations)
	requests.Get("/:id", cfg.Requests.GetRequest)
	requests.Delete("/:id", cfg.Requests.DeleteRequest)
	requests.Put("/:id/status", cfg.Requests.UpdateStatus)
	requests.Put("/:id/assign", cfg.Requests.Assign)
	requests.Get("/:id/transitions", cfg.Requests.Transitions)
	requests.Get("/:id/comments", cfg.Requests.ListComments)
	requests.Post("/:id/comments", cfg.Requests.AddComment)

	agents := api.Group("/agents")
	agents.Get("/", cfg.Agents.ListAgents)
	agents.Get("/:id", cfg.Agents.GetAgent)
	requireAdmin := auth.RequireAdmin()
	agents.Post("/", requireAdmin, cfg.Agents.CreateAgent)
	agents.Put("/:id", requireAdmin, cfg.Agents.UpdateAgent)
	agents.Delete("/:id", requireAdmin, cfg.Agents.DeleteAgent)
}
