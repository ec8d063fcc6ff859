// Command bot runs the anonymous intentions relay.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intentionsbot/internal/bootstrap"
	"intentionsbot/internal/bot"
	"intentionsbot/internal/config"
	"intentionsbot/internal/observability"
	"intentionsbot/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.SetGlobalLogger(observability.NewLogger(cfg.Env, cfg.LogLevel))
	logger := observability.GlobalLogger

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "intentions-bot",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	api, err := bot.Connect(cfg.TelegramToken, cfg.BotDebug)
	if err != nil {
		_ = rt.Close()
		log.Fatalf("Failed to connect bot: %v", err)
	}

	gateway := bot.NewGateway(api)
	moderation, submission := rt.Services(gateway, cfg.ActivationPassword)
	dispatcher := bot.NewDispatcher(submission, moderation, gateway, api.Self.ID)

	ops := server.New(cfg.OpsAddr, rt.Handlers())
	go func() {
		if err := ops.Start(); err != nil {
			logger.Error("ops server stopped", "error", err)
		}
	}()

	runErr := bot.New(api, dispatcher).Run(ctx)

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}
	if err := rt.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if runErr != nil {
		logger.Error("bot stopped with error", "error", runErr)
		os.Exit(1)
	}
}
