package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CountsFunc reports entity totals for the readiness payload.
type CountsFunc func(ctx context.Context) (map[string]int, error)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	storeName   string
	store       Pinger
	redis       Pinger
	counts      CountsFunc
}

// HealthConfig bundles the probed dependencies. Nil pingers are reported as not configured.
type HealthConfig struct {
	ServiceName string
	Version     string
	StoreName   string
	Store       Pinger
	Redis       Pinger
	Counts      CountsFunc
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(cfg HealthConfig) *HealthHandler {
	return &HealthHandler{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		storeName:   cfg.StoreName,
		store:       cfg.Store,
		redis:       cfg.Redis,
		counts:      cfg.Counts,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies. Only the store
// gates readiness; redis merely guards the sweep lock.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			depStatus[h.storeName] = err.Error()
			ready = false
		} else {
			depStatus[h.storeName] = "ok"
		}
	} else {
		depStatus[h.storeName] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			depStatus["redis"] = "degraded: " + err.Error()
		} else {
			depStatus["redis"] = "ok"
		}
	} else {
		depStatus["redis"] = "not configured"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": depStatus,
			},
		})
	}

	body := fiber.Map{
		"status":       "ready",
		"dependencies": depStatus,
	}
	if h.counts != nil {
		if counts, err := h.counts(ctx); err == nil {
			body["counts"] = counts
		}
	}
	return c.JSON(body)
}
