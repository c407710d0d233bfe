package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *RateLimiter) Enabled() bool {
	return r != nil && r.rdb != nil && r.limit > 0
}

func (r *RateLimiter) Limit() int {
	return r.limit
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Allow counts one hit for key. The window starts at the first hit.
func (r *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if !r.Enabled() {
		return Decision{Allowed: true, Remaining: r.remainingUnlimited()}, nil
	}

	redisKey := fmt.Sprintf("ratelimit:%s:%s", r.prefix, key)
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	remaining := ttl.Val()
	if remaining < 0 {
		if err := r.rdb.PExpire(ctx, redisKey, r.window).Err(); err != nil {
			return Decision{}, err
		}
		remaining = r.window
	}

	if count > r.limit {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: remaining}, nil
	}
	return Decision{Allowed: true, Remaining: r.limit - count}, nil
}

func (r *RateLimiter) remainingUnlimited() int {
	if r == nil {
		return 0
	}
	return r.limit
}
