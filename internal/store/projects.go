package store

import (
	"context"
	"errors"
	"strings"

	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FindProjectByAPIKey resolves a client credential to its project.
// The bool is false when no project owns the key.
func FindProjectByAPIKey(ctx context.Context, db *gorm.DB, apiKey string) (model.Project, bool, error) {
	apiKey = strings.TrimSpace(apiKey)
	if db == nil || apiKey == "" {
		return model.Project{}, false, nil
	}
	var p model.Project
	err := db.WithContext(ctx).Where("api_key = ?", apiKey).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Project{}, false, nil
		}
		return model.Project{}, false, err
	}
	return p, true, nil
}

func FindProjectByID(ctx context.Context, db *gorm.DB, id string) (model.Project, bool, error) {
	if db == nil || id == "" {
		return model.Project{}, false, nil
	}
	var p model.Project
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Project{}, false, nil
		}
		return model.Project{}, false, err
	}
	return p, true, nil
}

func FindOrganizationByID(ctx context.Context, db *gorm.DB, id string) (model.Organization, bool, error) {
	if db == nil || id == "" {
		return model.Organization{}, false, nil
	}
	var org model.Organization
	err := db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Organization{}, false, nil
		}
		return model.Organization{}, false, err
	}
	return org, true, nil
}

// RotateProjectAPIKey swaps the project's credential for a fresh one in a
// single UPDATE so the old key stops working the instant the new one exists.
func RotateProjectAPIKey(ctx context.Context, db *gorm.DB, projectID string) (string, error) {
	if db == nil || projectID == "" {
		return "", errors.New("store: missing project id")
	}
	rotate := func(key string) (int64, error) {
		res := db.WithContext(ctx).Model(&model.Project{}).
			Where("id = ?", projectID).
			Update("api_key", key)
		return res.RowsAffected, res.Error
	}

	newKey := uuid.NewString()
	affected, err := rotate(newKey)
	if err != nil {
		// Retry once only if it looks like a key collision.
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
			return "", err
		}
		newKey = uuid.NewString()
		if affected, err = rotate(newKey); err != nil {
			return "", err
		}
	}
	if affected == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return newKey, nil
}
