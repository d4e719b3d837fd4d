package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dorm-maintenance/internal/observability"
)

// DependencyCheck pings one backing service for readiness.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []DependencyCheck
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, metrics *observability.Metrics, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, checks: checks, metrics: metrics}
}

// Root GET /.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Dorm Maintenance Ticket API is running"})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			depStatus[check.Name] = err.Error()
			ready = false
		} else {
			depStatus[check.Name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"code":    "DEPENDENCY_UNAVAILABLE",
		"message": "one or more dependencies unavailable",
		"details": depStatus,
	})
}

// Metrics exposes the in-process request counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
