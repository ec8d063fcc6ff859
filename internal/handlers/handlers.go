// Package handlers serves the operational HTTP endpoints of the bot.
package handlers

import (
	"context"
	"time"

	"intentionsbot/internal/observability"
	"intentionsbot/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// Pinger is the minimal Redis surface the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handlers struct {
	Redis  Pinger
	Outbox repository.OutboxRepository
}

// Live reports that the process is up.
func (h *Handlers) Live(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// Ready reports whether the store is reachable. The outbox state is
// informational and never fails the probe.
func (h *Handlers) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	redisStatus := "healthy"
	if h.Redis == nil {
		redisStatus = "unavailable"
	} else if err := h.Redis.Ping(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "readiness ping failed", "error", err)
		redisStatus = "unhealthy"
	}

	outboxStatus := "unknown"
	if h.Outbox != nil && redisStatus == "healthy" {
		if _, active, err := h.Outbox.Get(ctx); err == nil {
			outboxStatus = "inactive"
			if active {
				outboxStatus = "active"
			}
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"redis":  redisStatus,
			"outbox": outboxStatus,
		},
		"time": time.Now(),
	})
}

// Ping answers with a static pong.
func (h *Handlers) Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "pong"})
}
