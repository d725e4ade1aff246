package metrics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisClient("", "", 0); err == nil {
		t.Fatalf("expected error for empty addr")
	}

	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestRedisRecorderRecordAndToday(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := NewRedisRecorder(rdb)
	rec.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	rec.Record(ctx, "proj-1", OutcomeAccepted, "u-1")
	rec.Record(ctx, "proj-1", OutcomeAccepted, "u-2")
	rec.Record(ctx, "proj-1", OutcomeAccepted, "u-1")
	rec.Record(ctx, "proj-1", OutcomeDuplicate, "")
	rec.Record(ctx, "proj-1", OutcomeRateLimited, "")
	rec.Record(ctx, "proj-2", OutcomeAccepted, "u-9")

	u, ok, err := rec.Today(ctx, "proj-1")
	if err != nil || !ok {
		t.Fatalf("Today: ok=%v err=%v", ok, err)
	}
	if u.Accepted != 3 || u.Duplicate != 1 || u.RateLimited != 1 {
		t.Fatalf("usage = %+v", u)
	}
	if u.Users != 2 {
		t.Fatalf("distinct users = %d, want 2", u.Users)
	}

	other, _, err := rec.Today(ctx, "proj-2")
	if err != nil {
		t.Fatalf("Today proj-2: %v", err)
	}
	if other.Accepted != 1 || other.Users != 1 {
		t.Fatalf("proj-2 usage = %+v", other)
	}
}

func TestRedisRecorderNilSafe(t *testing.T) {
	t.Parallel()

	var rec *RedisRecorder
	rec.Record(context.Background(), "p", OutcomeAccepted, "u")
	if _, ok, err := rec.Today(context.Background(), "p"); ok || err != nil {
		t.Fatalf("nil recorder: ok=%v err=%v", ok, err)
	}
}
