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

// FindOrCreateIssue aggregates one occurrence into the issue identified by
// (projectID, fingerprint). Existing issues get count+1 and a fresher
// last_seen; a missing issue is inserted with count 1. The created flag
// reports which path was taken.
//
// Two racing callers must converge on a single row: the UPDATE runs first,
// the INSERT uses ON CONFLICT DO NOTHING on the unique pair, and a lost
// insert race falls back to the UPDATE once more.
func FindOrCreateIssue(ctx context.Context, db *gorm.DB, projectID, fingerprint, title, level string, seenAt time.Time) (model.Issue, bool, error) {
	if db == nil || projectID == "" || fingerprint == "" {
		return model.Issue{}, false, errors.New("store: missing issue key")
	}

	bump := func() (int64, error) {
		res := db.WithContext(ctx).Model(&model.Issue{}).
			Where("project_id = ? AND fingerprint = ?", projectID, fingerprint).
			Updates(map[string]any{
				"count":     gorm.Expr("count + 1"),
				"last_seen": seenAt,
			})
		return res.RowsAffected, res.Error
	}

	affected, err := bump()
	if err != nil {
		return model.Issue{}, false, err
	}
	created := false
	if affected == 0 {
		fresh := model.Issue{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			Fingerprint: fingerprint,
			Title:       title,
			Status:      model.IssueStatusUnresolved,
			Level:       level,
			FirstSeen:   seenAt,
			LastSeen:    seenAt,
			Count:       1,
		}
		res := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "fingerprint"}},
			DoNothing: true,
		}).Create(&fresh)
		if res.Error != nil {
			return model.Issue{}, false, res.Error
		}
		if res.RowsAffected > 0 {
			created = true
		} else if _, err := bump(); err != nil {
			return model.Issue{}, false, err
		}
	}

	var issue model.Issue
	if err := db.WithContext(ctx).
		Where("project_id = ? AND fingerprint = ?", projectID, fingerprint).
		First(&issue).Error; err != nil {
		return model.Issue{}, false, err
	}
	return issue, created, nil
}

// IssueSeenUser reports whether any persisted event for the issue already
// carries this distinct user id.
func IssueSeenUser(ctx context.Context, db *gorm.DB, issueID, userID string) (bool, error) {
	if db == nil || issueID == "" || userID == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(&model.Event{}).
		Where("issue_id = ? AND user_id = ?", issueID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func IncrementIssueUserCount(ctx context.Context, db *gorm.DB, issueID string) error {
	return db.WithContext(ctx).Model(&model.Issue{}).
		Where("id = ?", issueID).
		Update("user_count", gorm.Expr("user_count + 1")).Error
}

func FindIssueByID(ctx context.Context, db *gorm.DB, id string) (model.Issue, bool, error) {
	if db == nil || id == "" {
		return model.Issue{}, false, nil
	}
	var issue model.Issue
	err := db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Issue{}, false, nil
		}
		return model.Issue{}, false, err
	}
	return issue, true, nil
}

// UpdateIssueStatus applies an explicit state change (resolve, ignore,
// reopen). Ingestion never calls this; a recurring resolved issue stays
// resolved until someone reopens it.
func UpdateIssueStatus(ctx context.Context, db *gorm.DB, issueID, status string) error {
	switch status {
	case model.IssueStatusUnresolved, model.IssueStatusResolved, model.IssueStatusIgnored:
	default:
		return errors.New("store: unknown issue status " + status)
	}
	res := db.WithContext(ctx).Model(&model.Issue{}).
		Where("id = ?", issueID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
