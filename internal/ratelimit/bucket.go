package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucketState is one (subject, category) bucket's mutable state: tokens
// remaining and when the window began. Token buckets here refill in one
// shot at the end of RefillInterval rather than continuously — a
// fixed-window reset is the simplest bucket that satisfies "N per
// interval" without committing to a particular refill curve.
type bucketState struct {
	tokens int
	windowEnd time.Time
}

// InProcessLimiter is the in-memory Limiter used by tests: a map of buckets,
// reset on process restart, mirroring how the session registry and
// presence set are held as process-local state.
type InProcessLimiter struct {
	mu sync.Mutex
	policies Policies
	buckets map[bucketKey]*bucketState
	clock func() time.Time
}

type bucketKey struct {
	subject string
	category Category
}

// NewInProcessLimiter builds a limiter from the given per-category
// policies. clock defaults to time.Now if nil, overridable in tests that
// need a fixed clock.
func NewInProcessLimiter(policies Policies, clock func() time.Time) *InProcessLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &InProcessLimiter{
		policies: policies,
		buckets: make(map[bucketKey]*bucketState),
		clock: clock,
	}
}

// Allow consumes one token from subject's bucket in category, refilling the
// bucket first if its window has elapsed.
func (l *InProcessLimiter) Allow(_ context.Context, subject string, category Category) (Result, error) {
	policy, ok := l.policies[category]
	if !ok || policy.Capacity <= 0 {
		return Result{Allowed: true, Limit: 0, Remaining: 0}, nil
	}

	now := l.clock()
	key := bucketKey{subject: subject, category: category}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		b = &bucketState{tokens: policy.Capacity, windowEnd: now.Add(policy.RefillInterval)}
		l.buckets[key] = b
	}

	if b.tokens <= 0 {
		return Result{
			Allowed: false,
			Limit: policy.Capacity,
			Remaining: 0,
			RetryAfter: b.windowEnd.Sub(now),
		}, nil
	}

	b.tokens--
	return Result{
		Allowed: true,
		Limit: policy.Capacity,
		Remaining: b.tokens,
	}, nil
}
