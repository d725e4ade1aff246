package store

import (
	"context"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventExists reports whether the client-generated event id was already
// ingested for this project. Used for the dedup gate before any aggregation
// work happens.
func EventExists(ctx context.Context, db *gorm.DB, projectID, eventID string) (bool, error) {
	if db == nil || projectID == "" || eventID == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(&model.Event{}).
		Where("project_id = ? AND id = ?", projectID, eventID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertEvent persists the raw occurrence. A concurrent duplicate of the
// same event id is swallowed by ON CONFLICT DO NOTHING; the inserted flag
// tells the caller whether this call owned the row.
func InsertEvent(ctx context.Context, db *gorm.DB, row *model.Event) (bool, error) {
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// timestampLayouts are tried in order when clients send non-RFC3339 strings.
// Space-separated and zone-less ISO-8601 variants show up from older SDKs;
// naive timestamps are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseEventTimestamp interprets a client-supplied timestamp string, falling
// back to the receipt time when the value is absent or unparseable.
func ParseEventTimestamp(raw string, receivedAt time.Time) time.Time {
	if raw == "" {
		return receivedAt.UTC()
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return receivedAt.UTC()
}
