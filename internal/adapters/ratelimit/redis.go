// Package ratelimit implements domain.RateLimiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"warsjawa/internal/domain"
)

type redisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisLimiter returns a fixed-window rate limiter. A key is allowed up to
// limit calls per window; the counter expires with the window, so quotas
// reset on their own.
func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration) domain.RateLimiter {
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first call instead of sliding on
	// every increment.
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	return count.Val() <= l.limit, nil
}
