package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/api/http/handlers"
	"github.com/spec-kit/dorm-maintenance/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Categories *handlers.CategoriesHandler
	Tickets    *handlers.TicketsHandler
}

// RegisterRoutes wires HTTP routes. Only the role-gated ticket operations read X-Role.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	categories := app.Group("/categories")
	categories.Post("", cfg.Categories.CreateCategory)
	categories.Get("", cfg.Categories.ListCategories)
	categories.Get("/:id", cfg.Categories.GetCategory)
	categories.Put("/:id", cfg.Categories.UpdateCategory)
	categories.Delete("/:id", cfg.Categories.DeleteCategory)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", auth.RequireRole(), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/comments", auth.RequireRole(), cfg.Tickets.AddComment)
	tickets.Put("/:id/status", auth.RequireRole(), cfg.Tickets.UpdateStatus)
}
