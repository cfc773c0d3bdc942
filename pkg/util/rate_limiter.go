package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// counter RateLimiter 用到的 Redis 命令，*redis.Client 满足该接口
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiter 固定窗口计数限流，按 key 计数
type RateLimiter struct {
	rdb    counter
	limit  int64
	window time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	l := &RateLimiter{
		limit:  int64(limit),
		window: window,
		logger: logger,
		now:    time.Now,
	}
	// nil 指针不能存进接口，否则 Allow 的 nil 判断失效
	if rdb != nil {
		l.rdb = rdb
	}
	return l
}

// Allow 返回 true 表示本次请求未超过限额
// Redis 不可用时放行（限流失败不应阻止正常对话）
func (l *RateLimiter) Allow(ctx context.Context, scope string, userID int) bool {
	if l == nil || l.rdb == nil || l.limit <= 0 {
		return true
	}

	key := FormatRateKey(scope, userID, l.now(), l.window)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("Redis rate limit check failed, allowing request",
			zap.String("scope", scope),
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		return true
	}

	// 首次计数时设置过期时间；失败时 key 不会过期，只记录日志
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("Failed to set rate limit key expiry",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	if count > l.limit {
		l.logger.Info("Rate limit exceeded",
			zap.String("scope", scope),
			zap.Int("user_id", userID),
			zap.Int64("count", count),
		)
		return false
	}
	return true
}

// FormatRateKey 生成限流 key，同一窗口内的请求落到同一个 key
func FormatRateKey(scope string, userID int, now time.Time, window time.Duration) string {
	bucket := now.Unix() / int64(window/time.Second)
	return fmt.Sprintf("ratelimit:%s:%d:%d", scope, userID, bucket)
}
