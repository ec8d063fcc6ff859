package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimiter_Allow(t *testing.T) {
	mr, rdb := setup(t)
	ctx := context.Background()
	l := New(rdb, 2, time.Minute, FailOpen)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "submit", "abc")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.Allow(ctx, "submit", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	// other ids are independent
	ok, err = l.Allow(ctx, "submit", "def")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Minute, mr.TTL(Key("submit", "abc")))

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "submit", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_Disabled(t *testing.T) {
	mr, rdb := setup(t)
	l := New(rdb, 0, time.Minute, FailClosed)

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(context.Background(), "submit", "abc")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Empty(t, mr.Keys())

	var nilLimiter *Limiter
	ok, err := nilLimiter.Allow(context.Background(), "submit", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_FailPolicy(t *testing.T) {
	mr, rdb := setup(t)
	mr.Close()

	ok, err := New(rdb, 1, time.Minute, FailOpen).Allow(context.Background(), "submit", "abc")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = New(rdb, 1, time.Minute, FailClosed).Allow(context.Background(), "submit", "abc")
	assert.Error(t, err)
	assert.False(t, ok)
}

// failScripts fails every script call before it reaches Redis.
type failScripts struct{}

func (failScripts) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failScripts) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		switch cmd.Name() {
		case "eval", "evalsha":
			err := errors.New("script unavailable")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failScripts) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestLimiter_CountAndExpiryAreOneStep(t *testing.T) {
	mr, rdb := setup(t)
	rdb.AddHook(failScripts{})
	l := New(rdb, 1, time.Minute, FailOpen)

	ok, err := l.Allow(context.Background(), "submit", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	// a failed hit leaves nothing behind that could outlive the window
	assert.False(t, mr.Exists(Key("submit", "abc")))
}

func TestLimiter_KeyWithoutTTLRecovers(t *testing.T) {
	mr, rdb := setup(t)
	ctx := context.Background()
	key := Key("submit", "abc")
	require.NoError(t, mr.Set(key, "10"))

	l := New(rdb, 1, time.Minute, FailOpen)
	ok, err := l.Allow(ctx, "submit", "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(24 * time.Hour)
	ok, err = l.Allow(ctx, "submit", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
}
