package store

import (
	"context"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"gorm.io/gorm"
)

// ProjectTierRow is one row of the retention sweep's project listing.
type ProjectTierRow struct {
	ProjectID        string
	SubscriptionTier string
}

// ListProjectRetention returns every project with its organization's tier so
// the retention sweeper can compute a per-project cutoff.
func ListProjectRetention(ctx context.Context, db *gorm.DB) ([]ProjectTierRow, error) {
	if db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var rows []ProjectTierRow
	err := db.WithContext(ctx).Model(&model.Project{}).
		Select("projects.id AS project_id, organizations.subscription_tier").
		Joins("JOIN organizations ON organizations.id = projects.organization_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteEventsBeforeBatched removes expired events for one project in
// bounded chunks. The subquery caps each transaction; callers loop until a
// batch comes back short. Works on Postgres and SQLite.
func DeleteEventsBeforeBatched(ctx context.Context, db *gorm.DB, projectID string, before time.Time, batchSize int) (int64, error) {
	if db == nil {
		return 0, gorm.ErrInvalidDB
	}
	if projectID == "" {
		return 0, gorm.ErrInvalidData
	}
	if batchSize <= 0 {
		batchSize = 5000
	}

	before = before.UTC()
	res := db.WithContext(ctx).Exec(`
		WITH doomed AS (
			SELECT id FROM events
			WHERE project_id = ? AND timestamp < ?
			ORDER BY timestamp ASC
			LIMIT ?
		)
		DELETE FROM events WHERE id IN (SELECT id FROM doomed)
	`, projectID, before, batchSize)
	return res.RowsAffected, res.Error
}

func DeleteAlertLogsBefore(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	if db == nil {
		return 0, gorm.ErrInvalidDB
	}
	res := db.WithContext(ctx).
		Where("created_at < ?", before.UTC()).
		Delete(&model.AlertLog{})
	return res.RowsAffected, res.Error
}

func DeleteEmailRateLimitsBefore(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	if db == nil {
		return 0, gorm.ErrInvalidDB
	}
	res := db.WithContext(ctx).
		Where("last_sent_at < ?", before.UTC()).
		Delete(&model.EmailRateLimit{})
	return res.RowsAffected, res.Error
}
