// Package ratelimit caps how many submissions a user can stage per window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"intentionsbot/internal/observability"

	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store is unavailable.
type FailPolicy int

const (
	// FailOpen allows the action to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the action if Redis is unavailable.
	FailClosed
)

// hitScript counts one hit and arms the window on any key without a TTL,
// so a key can never outlive its window.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Limiter is a fixed-window counter kept in Redis under rl:<resource>:<id>.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	policy FailPolicy
}

// New returns a Limiter. A limit of zero or less disables limiting.
func New(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window, policy: policy}
}

// Key returns the Redis key used for a resource/id pair.
func Key(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}

// Allow records one hit and reports whether it fits in the current window.
// id must already be anonymized; raw user ids never reach Redis.
func (l *Limiter) Allow(ctx context.Context, resource, id string) (bool, error) {
	if l == nil || l.limit <= 0 {
		return true, nil
	}
	if l.rdb == nil {
		return l.onError(ctx, resource, fmt.Errorf("redis client is nil"))
	}

	key := Key(resource, id)

	cnt, err := hitScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return l.onError(ctx, resource, err)
	}
	return cnt <= int64(l.limit), nil
}

func (l *Limiter) onError(ctx context.Context, resource string, err error) (bool, error) {
	if l.policy == FailClosed {
		observability.GlobalLogger.WarnContext(ctx, "rate limit fail-closed", "resource", resource, "error", err)
		return false, err
	}
	observability.GlobalLogger.WarnContext(ctx, "rate limit unavailable, allowing", "resource", resource, "error", err)
	return true, nil
}
