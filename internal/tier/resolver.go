package tier

import (
	"context"
	"log"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"gorm.io/gorm"
)

// Resolver maps an API key to its organization's tier. Lookup failure applies
// the most conservative tier instead of blocking ingestion.
type Resolver struct {
	DB *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{DB: db}
}

func (r *Resolver) Resolve(ctx context.Context, apiKey string) Tier {
	if r == nil || r.DB == nil || apiKey == "" {
		return Free
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var tierName string
	err := r.DB.WithContext(lookupCtx).
		Model(&model.Organization{}).
		Select("organizations.subscription_tier").
		Joins("JOIN projects ON projects.organization_id = organizations.id").
		Where("projects.api_key = ?", apiKey).
		Scan(&tierName).Error
	if err != nil {
		log.Printf("tier: resolve: %v", err)
		return Free
	}
	return FromString(tierName)
}
