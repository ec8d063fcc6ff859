package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"intentionsbot/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"
)

func run(t *testing.T, mr *miniredis.Miniredis, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	full := append([]string{"intentions-admin", "--redis-url", mr.Addr()}, args...)
	err := app.RunContext(context.Background(), full)
	return strings.TrimSpace(out.String()), err
}

func assertExit(t *testing.T, err error, code int) {
	t.Helper()
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, code, exit.ExitCode())
}

func seed(t *testing.T, mr *miniredis.Miniredis) (repository.BanRepository, repository.OutboxRepository) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewBanRepository(rdb), repository.NewOutboxRepository(rdb)
}

func TestBanCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	bans, _ := seed(t, mr)
	res, err := bans.Ban(context.Background(), 42, "ofensivo", "texto", 500)
	require.NoError(t, err)

	out, err := run(t, mr, "bans", "count")
	require.NoError(t, err)
	assert.Equal(t, "1", out)

	out, err = run(t, mr, "baninfo", res.Token)
	require.NoError(t, err)
	assert.Contains(t, out, `"reason": "ofensivo"`)
	assert.Contains(t, out, res.UserHash)

	out, err = run(t, mr, "unban", res.Token)
	require.NoError(t, err)
	assert.Contains(t, out, "lifted")

	_, err = run(t, mr, "unban", res.Token)
	assertExit(t, err, 1)

	_, err = run(t, mr, "baninfo", res.Token)
	assertExit(t, err, 1)
	assert.Contains(t, err.Error(), "not found")

	_, err = run(t, mr, "baninfo", "not-a-token")
	assertExit(t, err, 2)
	assert.Contains(t, err.Error(), "malformed")

	_, err = run(t, mr, "baninfo")
	assert.Error(t, err)
}

func TestOutboxCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	_, outbox := seed(t, mr)

	out, err := run(t, mr, "outbox", "show")
	require.NoError(t, err)
	assert.Equal(t, "inactive", out)

	require.NoError(t, outbox.Set(context.Background(), -1001))
	out, err = run(t, mr, "outbox", "show")
	require.NoError(t, err)
	assert.Equal(t, "-1001", out)

	_, err = run(t, mr, "outbox", "reset")
	require.NoError(t, err)
	_, active, err := outbox.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}
