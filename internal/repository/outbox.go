package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"intentionsbot/internal/models"
	"intentionsbot/internal/observability"

	"github.com/redis/go-redis/v9"
)

// OutboxKey holds the id of the chat that currently receives submissions.
const OutboxKey = "bot:outbox_chat_id"

// OutboxRepository stores the single active review chat.
type OutboxRepository interface {
	Get(ctx context.Context) (int64, bool, error)
	Set(ctx context.Context, chatID int64) error
	// Swap writes chatID and returns the value it replaced in one step.
	Swap(ctx context.Context, chatID int64) (int64, bool, error)
	Clear(ctx context.Context) error
}

type outboxRepository struct {
	rdb    *redis.Client
	logger *observability.RepoLogger
}

// NewOutboxRepository returns a new OutboxRepository implementation.
func NewOutboxRepository(rdb *redis.Client) OutboxRepository {
	return &outboxRepository{rdb: rdb, logger: observability.NewRepoLogger("outbox")}
}

func (r *outboxRepository) Get(ctx context.Context) (int64, bool, error) {
	raw, err := r.rdb.Get(ctx, OutboxKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		r.logger.LogError(ctx, err, "get")
		return 0, false, fmt.Errorf("get outbox: %w", err)
	}
	return parseChatID(raw)
}

func (r *outboxRepository) Set(ctx context.Context, chatID int64) error {
	if err := r.rdb.Set(ctx, OutboxKey, chatID, 0).Err(); err != nil {
		r.logger.LogError(ctx, err, "set")
		return fmt.Errorf("set outbox: %w", err)
	}
	r.logger.LogWrite(ctx, "set", map[string]interface{}{"chat_id": chatID})
	return nil
}

func (r *outboxRepository) Swap(ctx context.Context, chatID int64) (int64, bool, error) {
	raw, err := r.rdb.GetSet(ctx, OutboxKey, chatID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.LogError(ctx, err, "swap")
		return 0, false, fmt.Errorf("swap outbox: %w", err)
	}
	r.logger.LogWrite(ctx, "swap", map[string]interface{}{"chat_id": chatID})

	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return parseChatID(raw)
}

func (r *outboxRepository) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, OutboxKey).Err(); err != nil {
		r.logger.LogError(ctx, err, "clear")
		return fmt.Errorf("clear outbox: %w", err)
	}
	r.logger.LogWrite(ctx, "clear", nil)
	return nil
}

func parseChatID(raw string) (int64, bool, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, models.NewInternalError(fmt.Errorf("outbox holds %q: %w", raw, err))
	}
	return id, true, nil
}
