package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"intentionsbot/internal/identity"
	"intentionsbot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestBanRepo(rdb *redis.Client, now time.Time) *banRepository {
	repo := NewBanRepository(rdb).(*banRepository)
	repo.now = func() time.Time { return now }
	return repo
}

func TestBanRepository_BanAndLookup(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	repo := newTestBanRepo(rdb, now)

	banned, err := repo.IsBanned(ctx, 42)
	require.NoError(t, err)
	assert.False(t, banned)

	res, err := repo.Ban(ctx, 42, "ofensivo", "Intenção anônima: xyz", 7)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, identity.Hash(42), res.UserHash)
	assert.NotEmpty(t, res.Token)

	banned, err = repo.IsBanned(ctx, 42)
	require.NoError(t, err)
	assert.True(t, banned)

	token, ok, err := repo.GetBanToken(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, res.Token, token)

	rec, err := repo.GetBanRecord(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, res.Token, rec.Token)
	assert.Equal(t, identity.Hash(42), rec.UserHash)
	assert.Equal(t, "ofensivo", rec.Reason)
	assert.Equal(t, "Intenção anônima: xyz", rec.Intention)
	assert.Equal(t, int64(7), rec.AdminID)
	assert.Equal(t, now, rec.CreatedAt)

	assert.Equal(t, res.Token, mr.HGet(BanTokensKey, identity.Hash(42)))
}

func TestBanRepository_NeverStoresRawUserID(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewBanRepository(rdb)

	res, err := repo.Ban(ctx, 987654321, "spam", "x", 1)
	require.NoError(t, err)

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "987654321")
	}
	fields, err := mr.HKeys(BanTokensKey)
	require.NoError(t, err)
	assert.NotContains(t, fields, "987654321")
	assert.NotEqual(t, "987654321", mr.HGet(BanRecordPrefix+res.Token, "user_hash"))
}

func TestBanRepository_BanIsIdempotent(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := newTestBanRepo(rdb, first)

	res1, err := repo.Ban(ctx, 5, "first reason", "first intention", 1)
	require.NoError(t, err)

	repo.now = func() time.Time { return first.Add(time.Hour) }
	res2, err := repo.Ban(ctx, 5, "second reason", "second intention", 2)
	require.NoError(t, err)

	assert.False(t, res2.Created)
	assert.Equal(t, res1.Token, res2.Token)

	rec, err := repo.GetBanRecord(ctx, res1.Token)
	require.NoError(t, err)
	assert.Equal(t, "first reason", rec.Reason)
	assert.Equal(t, int64(1), rec.AdminID)
	assert.Equal(t, first, rec.CreatedAt)

	// one forward entry plus one reverse record
	assert.Len(t, mr.Keys(), 2)
}

func TestBanRepository_GeneratedUsers(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewBanRepository(rdb)

	seed := time.Now().UnixNano()
	faker := gofakeit.New(seed)
	seen := map[int64]bool{}

	for i := 0; i < 50; i++ {
		id := faker.Int64()
		if seen[id] {
			continue
		}
		seen[id] = true
		reason := faker.Sentence(4)
		intention := "Intenção anônima: " + faker.Sentence(8)
		adminID := int64(faker.Number(1, 1<<30))
		msg := fmt.Sprintf("seed %d user %d", seed, id)

		first, err := repo.Ban(ctx, id, reason, intention, adminID)
		require.NoError(t, err, msg)
		assert.True(t, first.Created, msg)

		again, err := repo.Ban(ctx, id, faker.Sentence(3), faker.Sentence(3), adminID+1)
		require.NoError(t, err, msg)
		assert.False(t, again.Created, msg)
		assert.Equal(t, first.Token, again.Token, msg)

		rec, err := repo.GetBanRecord(ctx, first.Token)
		require.NoError(t, err, msg)
		require.NotNil(t, rec, msg)
		assert.Equal(t, reason, rec.Reason, msg)
		assert.Equal(t, intention, rec.Intention, msg)
		assert.Equal(t, adminID, rec.AdminID, msg)
		assert.Equal(t, identity.Hash(id), rec.UserHash, msg)

		removed, err := repo.Unban(ctx, first.Token)
		require.NoError(t, err, msg)
		assert.True(t, removed, msg)

		banned, err := repo.IsBanned(ctx, id)
		require.NoError(t, err, msg)
		assert.False(t, banned, msg)

		removed, err = repo.Unban(ctx, first.Token)
		require.NoError(t, err, msg)
		assert.False(t, removed, msg)
	}

	assert.Empty(t, mr.Keys())
}

func TestBanRepository_ConcurrentBansYieldOneToken(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewBanRepository(rdb)

	const workers = 16
	tokens := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := repo.Ban(ctx, 99, fmt.Sprintf("reason %d", i), "intention", int64(i))
			if err == nil {
				tokens[i] = res.Token
			}
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, tokens[0], tok)
	}
	assert.Len(t, mr.Keys(), 2)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBanRepository_Unban(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewBanRepository(rdb)

	res, err := repo.Ban(ctx, 42, "r", "i", 1)
	require.NoError(t, err)

	ok, err := repo.Unban(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	banned, err := repo.IsBanned(ctx, 42)
	require.NoError(t, err)
	assert.False(t, banned)

	rec, err := repo.GetBanRecord(ctx, res.Token)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, mr.Keys())

	ok, err = repo.Unban(ctx, res.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBanRepository_UnbanUnknownToken(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewBanRepository(rdb)

	ok, err := repo.Unban(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)

	for _, raw := range []string{"", "does-not-exist", "1234"} {
		ok, err = repo.Unban(ctx, raw)
		assert.True(t, models.HasCode(err, models.CodeValidation), "token %q", raw)
		assert.False(t, ok)
	}
}

func TestParseToken(t *testing.T) {
	tok := uuid.NewString()

	got, err := ParseToken("  " + strings.ToUpper(tok) + " ")
	require.NoError(t, err)
	assert.Equal(t, tok, got)

	_, err = ParseToken("nope")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestBanRepository_RebanAfterUnbanIssuesNewToken(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewBanRepository(rdb)

	res1, err := repo.Ban(ctx, 8, "r", "i", 1)
	require.NoError(t, err)
	_, err = repo.Unban(ctx, res1.Token)
	require.NoError(t, err)

	res2, err := repo.Ban(ctx, 8, "r2", "i2", 1)
	require.NoError(t, err)
	assert.True(t, res2.Created)
	assert.NotEqual(t, res1.Token, res2.Token)
}

func TestBanRepository_GetBanRecordUnknown(t *testing.T) {
	_, rdb := setupRedis(t)
	repo := NewBanRepository(rdb)

	rec, err := repo.GetBanRecord(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = repo.GetBanRecord(context.Background(), "nope")
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Nil(t, rec)
}

func TestBanRepository_GetBanRecordCorrupt(t *testing.T) {
	mr, rdb := setupRedis(t)
	repo := NewBanRepository(rdb)

	tok := uuid.NewString()
	mr.HSet(BanRecordPrefix+tok, "user_hash", "h", "admin_id", "x", "timestamp", "1")

	_, err := repo.GetBanRecord(context.Background(), tok)
	assert.True(t, models.HasCode(err, models.CodeInternal))
}

func TestBanRepository_StoreUnavailable(t *testing.T) {
	mr, rdb := setupRedis(t)
	repo := NewBanRepository(rdb)
	mr.Close()

	_, err := repo.IsBanned(context.Background(), 1)
	assert.Error(t, err)

	_, err = repo.Ban(context.Background(), 1, "r", "i", 1)
	assert.Error(t, err)
}
