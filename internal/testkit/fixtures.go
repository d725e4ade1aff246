package testkit

import (
	"testing"

	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedProject inserts an organization on the given subscription tier plus one
// project with a fresh API key, returning the project row.
func SeedProject(t testing.TB, db *gorm.DB, tier string) model.Project {
	t.Helper()

	org := model.Organization{
		ID:               uuid.NewString(),
		Name:             t.Name() + " org",
		SubscriptionTier: tier,
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("create organization: %v", err)
	}
	p := model.Project{
		ID:             uuid.NewString(),
		OrganizationID: org.ID,
		Name:           t.Name() + " project",
		APIKey:         uuid.NewString(),
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}
