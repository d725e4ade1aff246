package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/KCuppens/bugwatch/internal/store"
	"github.com/KCuppens/bugwatch/internal/tier"
	"gorm.io/gorm"
)

// auditRetention bounds how long alert logs and email cooldown markers are
// kept, independent of the per-tier event retention.
const auditRetention = 30 * 24 * time.Hour

// Worker enforces data retention: events age out per the owning
// organization's tier, delivery audit rows after a fixed window.
type Worker struct {
	DB              *gorm.DB
	Interval        time.Duration
	DeleteBatchSize int
	MaxBatches      int
	BatchSleep      time.Duration
	Now             func() time.Time
}

func NewWorker(db *gorm.DB, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Worker{
		DB:              db,
		Interval:        interval,
		DeleteBatchSize: 5000,
		MaxBatches:      50,
		Now:             time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.DB == nil {
		return
	}
	_ = w.RunOnce(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a full sweep. Per-project failures are logged and the
// sweep moves on; nothing here is urgent enough to abort the rest.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.Now().UTC()
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	rows, err := store.ListProjectRetention(runCtx, w.DB)
	if err != nil {
		log.Printf("cleanup: list project retention: %v", err)
		return err
	}
	for _, row := range rows {
		limits := tier.FromString(row.SubscriptionTier).Limits()
		if limits.RetentionDays < 0 {
			// Unlimited retention.
			continue
		}
		before := now.Add(-time.Duration(limits.RetentionDays) * 24 * time.Hour)
		if err := w.deleteEventsBatched(ctx, row.ProjectID, before); err != nil {
			log.Printf("cleanup: project=%s events: %v", row.ProjectID, err)
		}
	}

	auditBefore := now.Add(-auditRetention)
	if n, err := store.DeleteAlertLogsBefore(runCtx, w.DB, auditBefore); err != nil {
		log.Printf("cleanup: alert logs: %v", err)
	} else if n > 0 {
		log.Printf("cleanup: removed %d expired alert logs", n)
	}
	if n, err := store.DeleteEmailRateLimitsBefore(runCtx, w.DB, auditBefore); err != nil {
		log.Printf("cleanup: email rate limits: %v", err)
	} else if n > 0 {
		log.Printf("cleanup: removed %d stale email cooldown markers", n)
	}
	return nil
}

func (w *Worker) deleteEventsBatched(ctx context.Context, projectID string, before time.Time) error {
	maxBatches := w.MaxBatches
	if maxBatches <= 0 {
		maxBatches = 1
	}
	batchSize := w.DeleteBatchSize
	if batchSize <= 0 {
		batchSize = 5000
	}

	for i := 0; i < maxBatches; i++ {
		batchCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		n, err := store.DeleteEventsBeforeBatched(batchCtx, w.DB, projectID, before, batchSize)
		cancel()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if w.BatchSleep > 0 {
			time.Sleep(w.BatchSleep)
		}
	}
	return nil
}
