package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is the distributed backend: buckets are stored in
// Valkey/Redis so capacity survives a process restart, reusing the same
// redis.Client dependency event fan-out already depends on instead of
// introducing a second store. main.go always constructs this backend in
// production; InProcessLimiter remains available for tests.
type RedisLimiter struct {
	rdb *redis.Client
	policies Policies
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(rdb *redis.Client, policies Policies) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policies: policies}
}

// Allow implements Limiter using INCR, then EXPIRE when INCR returned 1:
// the first request in a window sets the window's TTL, every subsequent request in the same
// window only increments the counter. This is the same fixed-window
// semantics as InProcessLimiter, just shared across processes.
func (l *RedisLimiter) Allow(ctx context.Context, subject string, category Category) (Result, error) {
	policy, ok := l.policies[category]
	if !ok || policy.Capacity <= 0 {
		return Result{Allowed: true}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", category, subject)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr rate limit bucket %s: %w", key, err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, policy.RefillInterval).Err(); err != nil {
			return Result{}, fmt.Errorf("expire rate limit bucket %s: %w", key, err)
		}
	}

	if count > int64(policy.Capacity) {
		ttl, err := l.rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = policy.RefillInterval
		}
		return Result{
			Allowed: false,
			Limit: policy.Capacity,
			Remaining: 0,
			RetryAfter: ttl,
		}, nil
	}

	return Result{
		Allowed: true,
		Limit: policy.Capacity,
		Remaining: policy.Capacity - int(count),
	}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
