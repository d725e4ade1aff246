package store

import (
	"context"
	"errors"

	"github.com/KCuppens/bugwatch/internal/model"
	"gorm.io/gorm"
)

func FindMonitorByID(ctx context.Context, db *gorm.DB, id string) (model.Monitor, bool, error) {
	if db == nil || id == "" {
		return model.Monitor{}, false, nil
	}
	var m model.Monitor
	err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Monitor{}, false, nil
		}
		return model.Monitor{}, false, err
	}
	return m, true, nil
}

// UpdateMonitorStatus records a probe transition (up, down, unknown).
func UpdateMonitorStatus(ctx context.Context, db *gorm.DB, monitorID, status string) error {
	res := db.WithContext(ctx).Model(&model.Monitor{}).
		Where("id = ?", monitorID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
