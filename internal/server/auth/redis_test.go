package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis is an in-memory stand-in for the three commands RedisIssuer uses.
type fakeRedis struct {
	data map[string][]byte
	ttl  map[string]time.Duration

	setErr error
	getErr error
	delErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = value.([]byte)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.delErr != nil {
		return redis.NewIntResult(0, f.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisIssuer_RoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	iss := NewRedisIssuer(rdb, 7*24*time.Hour)
	ctx := context.Background()

	tok, s, err := iss.Establish(ctx, "acc-1", "fp")
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, tok)

	require.Len(t, rdb.data, 1)
	for key := range rdb.data {
		assert.True(t, strings.HasPrefix(key, "admin_session:"))
		assert.NotContains(t, key, tok, "raw token must not be used as key")
		assert.Equal(t, 7*24*time.Hour, rdb.ttl[key])
	}

	got, err := iss.Validate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.Equal(t, "fp", got.Fingerprint)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRedisIssuer_Invalidate(t *testing.T) {
	rdb := newFakeRedis()
	iss := NewRedisIssuer(rdb, time.Hour)
	ctx := context.Background()

	tok, _, err := iss.Establish(ctx, "acc-1", "fp")
	require.NoError(t, err)

	require.NoError(t, iss.Invalidate(ctx, tok))
	assert.Empty(t, rdb.data)

	_, err = iss.Validate(ctx, tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	assert.NoError(t, iss.Invalidate(ctx, ""))
}

func TestRedisIssuer_UnknownToken(t *testing.T) {
	iss := NewRedisIssuer(newFakeRedis(), time.Hour)

	_, err := iss.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = iss.Validate(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRedisIssuer_Expired(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	iss := NewRedisIssuer(newFakeRedis(), time.Minute)
	iss.now = fixedClock(start)

	tok, _, err := iss.Establish(context.Background(), "acc", "fp")
	require.NoError(t, err)

	iss.now = fixedClock(start.Add(time.Minute))
	_, err = iss.Validate(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRedisIssuer_CorruptValue(t *testing.T) {
	rdb := newFakeRedis()
	iss := NewRedisIssuer(rdb, time.Hour)
	rdb.data[redisKey("tok")] = []byte("{not json")

	_, err := iss.Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRedisIssuer_BackendErrors(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")

	rdb := newFakeRedis()
	rdb.setErr = down
	_, _, err := NewRedisIssuer(rdb, time.Hour).Establish(ctx, "acc", "fp")
	assert.ErrorIs(t, err, down)

	rdb = newFakeRedis()
	rdb.getErr = down
	_, err = NewRedisIssuer(rdb, time.Hour).Validate(ctx, "tok")
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, common.ErrInvalidToken)

	rdb = newFakeRedis()
	rdb.delErr = down
	assert.ErrorIs(t, NewRedisIssuer(rdb, time.Hour).Invalidate(ctx, "tok"), down)
}
