package httpserver

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KCuppens/bugwatch/internal/ingest"
	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/store"
	"github.com/KCuppens/bugwatch/internal/tier"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequireAPIKey authenticates the request's project API key and stashes the
// project plus its subscription tier for the handlers behind it. SDKs send
// the key either as a bearer token or in X-Bugwatch-Key.
func RequireAPIKey(db *gorm.DB) gin.HandlerFunc {
	cache := newAPIKeyCache(10_000, 30*time.Second)
	resolver := tier.NewResolver(db)
	return func(c *gin.Context) {
		key := apiKeyFromRequest(c)
		if key == "" {
			ingest.RespondError(c, http.StatusUnauthorized, ingest.CodeUnauthorized, "missing API key")
			return
		}

		if e, hit := cache.Get(key); hit {
			if !e.ok {
				ingest.RespondError(c, http.StatusUnauthorized, ingest.CodeUnauthorized, "unknown API key")
				return
			}
			ingest.SetAuthContext(c, e.project, e.tier)
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		project, found, err := store.FindProjectByAPIKey(ctx, db, key)
		if err != nil {
			ingest.RespondError(c, http.StatusInternalServerError, ingest.CodeInternal, "credential lookup failed")
			return
		}
		if !found {
			cache.Set(key, keyEntry{ok: false})
			ingest.RespondError(c, http.StatusUnauthorized, ingest.CodeUnauthorized, "unknown API key")
			return
		}

		t := resolver.Resolve(ctx, key)

		cache.Set(key, keyEntry{ok: true, project: project, tier: t})
		ingest.SetAuthContext(c, project, t)
		c.Next()
	}
}

func apiKeyFromRequest(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		if cand := strings.TrimSpace(authz[len("bearer "):]); cand != "" {
			return cand
		}
	}
	return strings.TrimSpace(c.GetHeader("X-Bugwatch-Key"))
}

type keyEntry struct {
	ok      bool
	project model.Project
	tier    tier.Tier
}

// apiKeyCache absorbs the per-event credential lookup. The short TTL bounds
// how long a rotated or revoked key keeps working.
type apiKeyCache struct {
	mu        sync.Mutex
	items     map[string]cachedKey
	maxItems  int
	ttl       time.Duration
	lastPrune time.Time
}

type cachedKey struct {
	entry keyEntry
	until time.Time
}

func newAPIKeyCache(maxItems int, ttl time.Duration) *apiKeyCache {
	if maxItems <= 0 {
		maxItems = 10_000
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &apiKeyCache{
		items:    map[string]cachedKey{},
		maxItems: maxItems,
		ttl:      ttl,
	}
}

func (c *apiKeyCache) Get(key string) (keyEntry, bool) {
	if c == nil {
		return keyEntry{}, false
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return keyEntry{}, false
	}
	if now.After(e.until) {
		delete(c.items, key)
		return keyEntry{}, false
	}
	return e.entry, true
}

func (c *apiKeyCache) Set(key string, e keyEntry) {
	if c == nil {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cachedKey{entry: e, until: now.Add(c.ttl)}

	if len(c.items) <= c.maxItems && now.Sub(c.lastPrune) < time.Minute {
		return
	}
	c.lastPrune = now
	for k, v := range c.items {
		if now.After(v.until) {
			delete(c.items, k)
		}
	}
	// Still over budget after expiring stale entries: evict arbitrarily.
	for k := range c.items {
		if len(c.items) <= c.maxItems {
			break
		}
		delete(c.items, k)
	}
}
