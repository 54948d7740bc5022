package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "admin_session:"

// RedisClient is the part of *redis.Client used by RedisIssuer.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIssuer stores sessions in Redis under the SHA-256 of an opaque random
// token; the raw token only ever lives in the cookie.
type RedisIssuer struct {
	client   RedisClient
	validity time.Duration
	now      func() time.Time
}

var _ Issuer = (*RedisIssuer)(nil)

func NewRedisIssuer(client RedisClient, validity time.Duration) *RedisIssuer {
	return &RedisIssuer{client: client, validity: validity, now: time.Now}
}

func redisKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

func (i *RedisIssuer) Establish(ctx context.Context, accountID, fingerprint string) (string, *Session, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}

	issued := i.now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(i.validity),
		Fingerprint: fingerprint,
	}

	data, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := i.client.Set(ctx, redisKey(token), data, i.validity).Err(); err != nil {
		return "", nil, fmt.Errorf("store session in redis: %w", err)
	}
	return token, s, nil
}

func (i *RedisIssuer) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	data, err := i.client.Get(ctx, redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("load session from redis: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, common.ErrInvalidToken
	}
	if !i.now().Before(s.ExpiresAt) {
		return nil, common.ErrTokenExpired
	}
	return &s, nil
}

func (i *RedisIssuer) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := i.client.Del(ctx, redisKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session from redis: %w", err)
	}
	return nil
}
