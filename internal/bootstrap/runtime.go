// Package bootstrap assembles the stores and services shared by the bot
// and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"intentionsbot/internal/config"
	"intentionsbot/internal/database"
	"intentionsbot/internal/featureflags"
	"intentionsbot/internal/handlers"
	"intentionsbot/internal/ratelimit"
	"intentionsbot/internal/repository"
	"intentionsbot/internal/service"

	"github.com/redis/go-redis/v9"
)

// Runtime holds the process-wide dependencies.
type Runtime struct {
	Redis   *redis.Client
	Bans    repository.BanRepository
	Outbox  repository.OutboxRepository
	Flags   *featureflags.Manager
	Limiter *ratelimit.Limiter
	Tracker *service.PendingTracker
}

// InitRuntime connects to Redis and builds the repositories.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rdb, err := database.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRuntime(rdb, cfg), nil
}

// NewRuntime builds a Runtime over an existing client.
func NewRuntime(rdb *redis.Client, cfg *config.Config) *Runtime {
	return &Runtime{
		Redis:   rdb,
		Bans:    repository.NewBanRepository(rdb),
		Outbox:  repository.NewOutboxRepository(rdb),
		Flags:   featureflags.NewManager(cfg.FeatureFlags),
		Limiter: ratelimit.New(rdb, cfg.SubmissionRateLimit, cfg.SubmissionRateWindow(), ratelimit.FailOpen),
		Tracker: service.NewPendingTracker(),
	}
}

// Services builds the moderation and submission services around a messenger.
func (r *Runtime) Services(messenger service.Messenger, password string) (*service.ModerationService, *service.SubmissionService) {
	moderation := service.NewModerationService(r.Bans, r.Outbox, messenger, r.Flags, password)
	submission := service.NewSubmissionService(moderation, r.Outbox, r.Tracker, messenger, r.Limiter, r.Flags)
	return moderation, submission
}

// Handlers returns the ops HTTP handlers bound to this runtime.
func (r *Runtime) Handlers() *handlers.Handlers {
	return &handlers.Handlers{
		Redis:  handlers.PingFunc(func(ctx context.Context) error { return r.Redis.Ping(ctx).Err() }),
		Outbox: r.Outbox,
	}
}

// Close releases the Redis connection.
func (r *Runtime) Close() error {
	if r == nil || r.Redis == nil {
		return nil
	}
	return r.Redis.Close()
}
