// Package repository implements the Redis-backed ban store and outbox registry.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"intentionsbot/internal/identity"
	"intentionsbot/internal/models"
	"intentionsbot/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// BanTokensKey is the forward index: user hash -> ban token.
	BanTokensKey = "bot:ban_tokens"
	// BanRecordPrefix prefixes the reverse record: ban token -> metadata.
	BanRecordPrefix = "bot:ban:"
)

// banScript writes the forward entry and the reverse record together unless
// the user is already banned, in which case the existing token is returned.
var banScript = redis.NewScript(`
local existing = redis.call('HGET', KEYS[1], ARGV[1])
if existing then
  return {existing, 0}
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], 'user_hash', ARGV[1], 'reason', ARGV[3], 'intention', ARGV[4], 'admin_id', ARGV[5], 'timestamp', ARGV[6])
return {ARGV[2], 1}
`)

// unbanScript removes the reverse record and its forward entry together.
var unbanScript = redis.NewScript(`
local userHash = redis.call('HGET', KEYS[2], 'user_hash')
if not userHash then
  return 0
end
redis.call('DEL', KEYS[2])
if redis.call('HGET', KEYS[1], userHash) == ARGV[1] then
  redis.call('HDEL', KEYS[1], userHash)
end
return 1
`)

// BanResult is returned by Ban. Created is false when the user was already
// banned and Token is the pre-existing one.
type BanResult struct {
	UserHash string
	Token    string
	Created  bool
}

// BanRepository defines persistence operations for bans. Users are always
// passed by raw id and hashed before touching storage.
type BanRepository interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
	GetBanToken(ctx context.Context, userID int64) (string, bool, error)
	GetBanRecord(ctx context.Context, token string) (*models.BanRecord, error)
	Ban(ctx context.Context, userID int64, reason, intention string, adminID int64) (BanResult, error)
	Unban(ctx context.Context, token string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type banRepository struct {
	rdb      *redis.Client
	logger   *observability.RepoLogger
	now      func() time.Time
	newToken func() string
}

// NewBanRepository returns a new BanRepository implementation.
func NewBanRepository(rdb *redis.Client) BanRepository {
	return &banRepository{
		rdb:      rdb,
		logger:   observability.NewRepoLogger("bans"),
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

func banRecordKey(token string) string {
	return BanRecordPrefix + token
}

// ParseToken canonicalizes a ban token typed by a reviewer or operator.
// Anything that is not a UUID is a validation error.
func ParseToken(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", models.NewValidationError(fmt.Sprintf("malformed ban token %q", raw))
	}
	return id.String(), nil
}

func (r *banRepository) IsBanned(ctx context.Context, userID int64) (bool, error) {
	ok, err := r.rdb.HExists(ctx, BanTokensKey, identity.Hash(userID)).Result()
	if err != nil {
		r.logger.LogError(ctx, err, "is_banned")
		return false, fmt.Errorf("check ban: %w", err)
	}
	return ok, nil
}

func (r *banRepository) GetBanToken(ctx context.Context, userID int64) (string, bool, error) {
	token, err := r.rdb.HGet(ctx, BanTokensKey, identity.Hash(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.logger.LogError(ctx, err, "get_ban_token")
		return "", false, fmt.Errorf("get ban token: %w", err)
	}
	return token, true, nil
}

// GetBanRecord returns nil without error when the token is unknown and a
// validation error when it is malformed.
func (r *banRepository) GetBanRecord(ctx context.Context, raw string) (*models.BanRecord, error) {
	token, err := ParseToken(raw)
	if err != nil {
		return nil, err
	}

	fields, err := r.rdb.HGetAll(ctx, banRecordKey(token)).Result()
	if err != nil {
		r.logger.LogError(ctx, err, "get_ban_record")
		return nil, fmt.Errorf("get ban record: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	adminID, err := strconv.ParseInt(fields["admin_id"], 10, 64)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("ban %s: bad admin_id: %w", token, err))
	}
	ts, err := strconv.ParseFloat(fields["timestamp"], 64)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("ban %s: bad timestamp: %w", token, err))
	}

	return &models.BanRecord{
		Token:     token,
		UserHash:  fields["user_hash"],
		Reason:    fields["reason"],
		Intention: fields["intention"],
		AdminID:   adminID,
		CreatedAt: time.Unix(int64(ts), 0).UTC(),
	}, nil
}

func (r *banRepository) Ban(ctx context.Context, userID int64, reason, intention string, adminID int64) (BanResult, error) {
	ctx, span := observability.TraceRedisOperation(ctx, "ban")
	defer span.End()

	userHash := identity.Hash(userID)
	candidate := r.newToken()

	res, err := banScript.Run(ctx, r.rdb,
		[]string{BanTokensKey, banRecordKey(candidate)},
		userHash,
		candidate,
		reason,
		intention,
		strconv.FormatInt(adminID, 10),
		strconv.FormatInt(r.now().Unix(), 10),
	).Slice()
	if err != nil {
		r.logger.LogError(ctx, err, "ban")
		span.RecordError(err)
		return BanResult{}, fmt.Errorf("ban user: %w", err)
	}
	if len(res) != 2 {
		return BanResult{}, models.NewInternalError(fmt.Errorf("ban script returned %d values", len(res)))
	}

	token, _ := res[0].(string)
	created, _ := res[1].(int64)
	if token == "" {
		return BanResult{}, models.NewInternalError(errors.New("ban script returned no token"))
	}

	if created == 1 {
		r.logger.LogWrite(ctx, "ban", map[string]interface{}{
			"user_hash": userHash,
			"token":     token,
			"admin_id":  adminID,
		})
	}

	return BanResult{UserHash: userHash, Token: token, Created: created == 1}, nil
}

// Unban reports false when the token does not exist and a validation
// error when it is malformed.
func (r *banRepository) Unban(ctx context.Context, raw string) (bool, error) {
	token, err := ParseToken(raw)
	if err != nil {
		return false, err
	}

	ctx, span := observability.TraceRedisOperation(ctx, "unban")
	defer span.End()

	n, err := unbanScript.Run(ctx, r.rdb, []string{BanTokensKey, banRecordKey(token)}, token).Int()
	if err != nil {
		r.logger.LogError(ctx, err, "unban")
		span.RecordError(err)
		return false, fmt.Errorf("unban: %w", err)
	}

	if n == 1 {
		r.logger.LogWrite(ctx, "unban", map[string]interface{}{"token": token})
	}
	return n == 1, nil
}

// Count returns the number of active bans.
func (r *banRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.rdb.HLen(ctx, BanTokensKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count bans: %w", err)
	}
	return n, nil
}
