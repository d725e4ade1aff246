package ingest

import (
	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/tier"
	"github.com/gin-gonic/gin"
)

const (
	ctxProjectKey = "bugwatch.project"
	ctxTierKey    = "bugwatch.tier"
)

// SetAuthContext stashes the authenticated project and its subscription tier
// for downstream handlers. Called by the router's auth middleware.
func SetAuthContext(c *gin.Context, p model.Project, t tier.Tier) {
	c.Set(ctxProjectKey, p)
	c.Set(ctxTierKey, t)
}

func AuthFromContext(c *gin.Context) (model.Project, tier.Tier, bool) {
	pv, ok := c.Get(ctxProjectKey)
	if !ok {
		return model.Project{}, tier.Free, false
	}
	p, ok := pv.(model.Project)
	if !ok {
		return model.Project{}, tier.Free, false
	}
	tv, ok := c.Get(ctxTierKey)
	if !ok {
		return model.Project{}, tier.Free, false
	}
	t, ok := tv.(tier.Tier)
	if !ok {
		return model.Project{}, tier.Free, false
	}
	return p, t, true
}
