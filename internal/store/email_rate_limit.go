package store

import (
	"context"
	"errors"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LastEmailSentAt returns when the (project, fingerprint, channel) triple
// last produced an email, or nil when it never has.
func LastEmailSentAt(ctx context.Context, db *gorm.DB, projectID, fingerprint, channelID string) (*time.Time, error) {
	if db == nil {
		return nil, nil
	}
	var row model.EmailRateLimit
	err := db.WithContext(ctx).
		Where("project_id = ? AND issue_fingerprint = ? AND channel_id = ?", projectID, fingerprint, channelID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := row.LastSentAt
	return &t, nil
}

// RecordEmailSent upserts the cooldown marker after a successful delivery.
func RecordEmailSent(ctx context.Context, db *gorm.DB, projectID, fingerprint, channelID string, sentAt time.Time) error {
	row := model.EmailRateLimit{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		IssueFingerprint: fingerprint,
		ChannelID:        channelID,
		LastSentAt:       sentAt.UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "issue_fingerprint"}, {Name: "channel_id"}},
		DoUpdates: clause.Assignments(map[string]any{"last_sent_at": row.LastSentAt}),
	}).Create(&row).Error
}
