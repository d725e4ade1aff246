package migrate

import (
	"context"

	"github.com/KCuppens/bugwatch/internal/model"
	"gorm.io/gorm"
)

func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	gdb := db.WithContext(ctx)
	if err := gdb.AutoMigrate(
		&model.Organization{},
		&model.Project{},
		&model.Issue{},
		&model.Event{},
		&model.Monitor{},
		&model.AlertRule{},
		&model.NotificationChannel{},
		&model.AlertLog{},
		&model.EmailRateLimit{},
	); err != nil {
		return err
	}

	// GIN index for ad-hoc payload queries.
	if err := gdb.Exec(`CREATE INDEX IF NOT EXISTS idx_events_payload ON events USING GIN (payload)`).Error; err != nil {
		return err
	}

	return nil
}
