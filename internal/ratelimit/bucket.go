package ratelimit

import (
	"math"
	"time"
)

// bucket is per-key token-bucket state. Tokens refill continuously based on
// elapsed time at each check; there is no background timer. Callers must hold
// the owning shard's lock.
type bucket struct {
	capacity   int
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	lastAccess time.Time
}

func newBucket(capacity int, refillPerMinute int, now time.Time) *bucket {
	return &bucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: float64(refillPerMinute) / 60.0,
		lastRefill: now,
		lastAccess: now,
	}
}

// Result of a rate limit check.
type Result struct {
	Allowed        bool
	Remaining      int
	Limit          int
	RetryAfterSecs int
}

func (b *bucket) tryConsume(now time.Time) Result {
	b.refill(now)
	b.lastAccess = now

	if b.tokens >= 1 {
		b.tokens--
		return Result{
			Allowed:   true,
			Remaining: int(b.tokens),
			Limit:     b.capacity,
		}
	}

	retry := 1
	if b.refillRate > 0 {
		retry = int(math.Ceil((1 - b.tokens) / b.refillRate))
		if retry < 1 {
			retry = 1
		}
	}
	return Result{
		Allowed:        false,
		Remaining:      0,
		Limit:          b.capacity,
		RetryAfterSecs: retry,
	}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(b.tokens+elapsed*b.refillRate, float64(b.capacity))
	b.lastRefill = now
}
