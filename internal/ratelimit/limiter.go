package ratelimit

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/KCuppens/bugwatch/internal/tier"
)

const (
	shardCount = 64

	// Burst never exceeds this even for very high tier limits.
	maxBurstCapacity = 1000
)

// Limiter is a sharded per-key token-bucket rate limiter. Buckets are created
// lazily on first use and swept after an inactivity window. Check does no I/O
// and never blocks on unrelated keys.
type Limiter struct {
	shards [shardCount]shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewLimiter() *Limiter {
	l := &Limiter{now: time.Now}
	for i := range l.shards {
		l.shards[i].buckets = make(map[string]*bucket)
	}
	return l
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.shards[h.Sum32()%shardCount]
}

// Check applies the tier's per-minute limit to key.
func (l *Limiter) Check(key string, t tier.Tier) Result {
	return l.CheckLimit(key, t.Limits().RateLimitPerMinute)
}

// CheckLimit applies an explicit per-minute limit to key. A limit of 0 always
// denies. Refill-then-consume is atomic per key.
func (l *Limiter) CheckLimit(key string, rate int) Result {
	capacity := rate
	if capacity > maxBurstCapacity {
		capacity = maxBurstCapacity
	}

	now := l.now()
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = newBucket(capacity, rate, now)
		s.buckets[key] = b
	}
	return b.tryConsume(now)
}

// CleanupInactive removes buckets whose last access is older than maxAge and
// returns how many were removed.
func (l *Limiter) CleanupInactive(maxAge time.Duration) int {
	now := l.now()
	removed := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for key, b := range s.buckets {
			if now.Sub(b.lastAccess) > maxAge {
				delete(s.buckets, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// BucketCount reports how many buckets are live, for monitoring.
func (l *Limiter) BucketCount() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}

// RunCleanup sweeps inactive buckets on its own schedule, independent of
// request traffic, until ctx is cancelled.
func (l *Limiter) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.CleanupInactive(maxAge); removed > 0 {
				log.Printf("ratelimit: removed %d inactive buckets", removed)
			}
		}
	}
}
