package store

import (
	"context"
	"errors"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ListActiveAlertRules(ctx context.Context, db *gorm.DB, projectID string) ([]model.AlertRule, error) {
	if db == nil || projectID == "" {
		return nil, nil
	}
	var rules []model.AlertRule
	err := db.WithContext(ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func FindChannelByID(ctx context.Context, db *gorm.DB, id string) (model.NotificationChannel, bool, error) {
	if db == nil || id == "" {
		return model.NotificationChannel{}, false, nil
	}
	var ch model.NotificationChannel
	err := db.WithContext(ctx).Where("id = ?", id).First(&ch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NotificationChannel{}, false, nil
		}
		return model.NotificationChannel{}, false, err
	}
	return ch, true, nil
}

// CreateAlertLog opens the audit trail for one dispatch attempt in the
// "pending" state. The row id is returned so the sender can settle it.
func CreateAlertLog(ctx context.Context, db *gorm.DB, ruleID, channelID, triggerType, triggerID, message string) (string, error) {
	row := model.AlertLog{
		ID:          uuid.NewString(),
		RuleID:      ruleID,
		ChannelID:   channelID,
		TriggerType: triggerType,
		TriggerID:   triggerID,
		Status:      model.AlertLogStatusPending,
		Message:     message,
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

func MarkAlertLogSent(ctx context.Context, db *gorm.DB, logID string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(&model.AlertLog{}).
		Where("id = ?", logID).
		Updates(map[string]any{
			"status":  model.AlertLogStatusSent,
			"sent_at": &now,
		}).Error
}

func MarkAlertLogFailed(ctx context.Context, db *gorm.DB, logID string, sendErr error) error {
	detail := ""
	if sendErr != nil {
		detail = sendErr.Error()
	}
	return db.WithContext(ctx).Model(&model.AlertLog{}).
		Where("id = ?", logID).
		Updates(map[string]any{
			"status":       model.AlertLogStatusFailed,
			"error_detail": detail,
		}).Error
}
