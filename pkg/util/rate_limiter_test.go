package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// memCounter 内存版 INCR/EXPIRE
type memCounter struct {
	counts    map[string]int64
	ttls      map[string]time.Duration
	incrErr   error
	expireErr error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.incrErr != nil {
		return redis.NewIntResult(0, m.incrErr)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memCounter) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if m.expireErr != nil {
		return redis.NewBoolResult(false, m.expireErr)
	}
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func newTestLimiter(c *memCounter, limit int, logger *zap.Logger) *RateLimiter {
	l := NewRateLimiter(nil, limit, time.Minute, logger)
	l.rdb = c
	l.now = func() time.Time { return time.Unix(1_700_000_040, 0) }
	return l
}

func TestFormatRateKeySameWindow(t *testing.T) {
	base := time.Unix(1_700_000_040, 0)
	a := FormatRateKey("chat", 7, base, time.Minute)
	b := FormatRateKey("chat", 7, base.Add(10*time.Second), time.Minute)
	c := FormatRateKey("chat", 7, base.Add(2*time.Minute), time.Minute)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "ratelimit:chat:7:")
}

func TestRateLimiterDisabledAllows(t *testing.T) {
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow(context.Background(), "chat", 1))

	l := NewRateLimiter(nil, 5, time.Minute, zap.NewNop())
	assert.True(t, l.Allow(context.Background(), "chat", 1))
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	c := newMemCounter()
	l := newTestLimiter(c, 2, zap.NewNop())
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "chat", 7))
	assert.True(t, l.Allow(ctx, "chat", 7))
	assert.False(t, l.Allow(ctx, "chat", 7))

	// 其他用户独立计数
	assert.True(t, l.Allow(ctx, "chat", 8))

	key := FormatRateKey("chat", 7, l.now(), time.Minute)
	assert.Equal(t, int64(3), c.counts[key])
	assert.Equal(t, time.Minute, c.ttls[key])

	// 进入下一个窗口后重新计数
	l.now = func() time.Time { return time.Unix(1_700_000_040, 0).Add(time.Minute) }
	assert.True(t, l.Allow(ctx, "chat", 7))
}

func TestRateLimiterLogsExpireFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := newMemCounter()
	c.expireErr = errors.New("READONLY")
	l := newTestLimiter(c, 5, zap.New(core))

	assert.True(t, l.Allow(context.Background(), "chat", 7))
	assert.Equal(t, 1, logs.FilterMessage("Failed to set rate limit key expiry").Len())

	// 只在首次计数时设置过期时间
	assert.True(t, l.Allow(context.Background(), "chat", 7))
	assert.Equal(t, 1, logs.FilterMessage("Failed to set rate limit key expiry").Len())
}

func TestRateLimiterAllowsWhenRedisFails(t *testing.T) {
	c := newMemCounter()
	c.incrErr = errors.New("connection refused")
	l := newTestLimiter(c, 1, zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(context.Background(), "chat", 7))
	}
}
