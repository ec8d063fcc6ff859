// Package server runs the operational HTTP listener: health probes and
// Prometheus metrics.
package server

import (
	"context"
	"sync"

	"intentionsbot/internal/handlers"
	"intentionsbot/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// fiberprometheus registers its collectors on the default registry, so it
// can only be built once per process.
var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

func metricsMiddleware() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("intentions-bot")
	})
	return prom
}

type Server struct {
	app  *fiber.App
	addr string
}

// New wires the routes. An empty addr disables Start.
func New(addr string, h *handlers.Handlers) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "intentions-bot",
	})
	app.Use(recover.New())

	p := metricsMiddleware()
	app.Use(p.Middleware)

	app.Get("/health/live", h.Live)
	app.Get("/health/ready", h.Ready)
	// Backwards-compatible alias used by container probes.
	app.Get("/health", h.Ready)
	app.Get("/ping", h.Ping)
	p.RegisterAt(app, "/metrics")

	return &Server{app: app, addr: addr}
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	if s.addr == "" {
		return nil
	}
	observability.GlobalLogger.Info("ops server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.addr == "" {
		return nil
	}
	return s.app.ShutdownWithContext(ctx)
}
