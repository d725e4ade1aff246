package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ingestion outcomes tracked per project per day.
const (
	OutcomeAccepted    = "accepted"
	OutcomeDuplicate   = "duplicate"
	OutcomeRateLimited = "rate_limited"
)

// RedisRecorder keeps per-project ingestion counters and a distinct-user
// HyperLogLog in Redis. A nil recorder is a no-op, so the hot path can call
// it unconditionally.
type RedisRecorder struct {
	rdb    *redis.Client
	dayTTL time.Duration
	now    func() time.Time
}

type RecorderOption func(*RedisRecorder)

func WithDayTTL(ttl time.Duration) RecorderOption {
	return func(r *RedisRecorder) {
		if ttl > 0 {
			r.dayTTL = ttl
		}
	}
}

func NewRedisRecorder(rdb *redis.Client, opts ...RecorderOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		dayTTL: 90 * 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record counts one intake decision. Failures are swallowed: usage counters
// must never fail an ingestion request.
func (r *RedisRecorder) Record(ctx context.Context, projectID, outcome, distinctID string) {
	if r == nil || r.rdb == nil || projectID == "" {
		return
	}
	date := r.now().UTC().Format("2006-01-02")
	distinctID = strings.TrimSpace(distinctID)

	pipe := r.rdb.Pipeline()
	dayKey := fmt.Sprintf("usage:%s:%s:%s", projectID, outcome, date)
	pipe.Incr(ctx, dayKey)
	pipe.Expire(ctx, dayKey, r.dayTTL)
	pipe.Incr(ctx, fmt.Sprintf("usage:%s:%s:total", projectID, outcome))
	if distinctID != "" {
		usersKey := fmt.Sprintf("usage:%s:users:%s", projectID, date)
		pipe.PFAdd(ctx, usersKey, distinctID)
		pipe.Expire(ctx, usersKey, r.dayTTL)
	}
	_, _ = pipe.Exec(ctx)
}

// Usage is one project's counters for a single day.
type Usage struct {
	Accepted    int64 `json:"accepted"`
	Duplicate   int64 `json:"duplicate"`
	RateLimited int64 `json:"rate_limited"`
	Users       int64 `json:"users"`
}

// Today reads back the current day's usage. ok is false when the recorder
// has no backing client.
func (r *RedisRecorder) Today(ctx context.Context, projectID string) (Usage, bool, error) {
	if r == nil || r.rdb == nil {
		return Usage{}, false, nil
	}
	date := r.now().UTC().Format("2006-01-02")

	pipe := r.rdb.Pipeline()
	acceptedCmd := pipe.Get(ctx, fmt.Sprintf("usage:%s:%s:%s", projectID, OutcomeAccepted, date))
	duplicateCmd := pipe.Get(ctx, fmt.Sprintf("usage:%s:%s:%s", projectID, OutcomeDuplicate, date))
	limitedCmd := pipe.Get(ctx, fmt.Sprintf("usage:%s:%s:%s", projectID, OutcomeRateLimited, date))
	usersCmd := pipe.PFCount(ctx, fmt.Sprintf("usage:%s:users:%s", projectID, date))
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return Usage{}, true, err
	}

	var u Usage
	u.Accepted, _ = acceptedCmd.Int64()
	u.Duplicate, _ = duplicateCmd.Int64()
	u.RateLimited, _ = limitedCmd.Int64()
	u.Users, _ = usersCmd.Result()
	return u, true, nil
}
