package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/KCuppens/bugwatch/internal/ingest"
	"github.com/KCuppens/bugwatch/internal/metrics"
	"github.com/KCuppens/bugwatch/internal/store"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UsageHandler reports today's ingestion counters for the authenticated
// project. 503 when the deployment runs without Redis.
func UsageHandler(recorder *metrics.RedisRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, _, ok := ingest.AuthFromContext(c)
		if !ok {
			ingest.RespondError(c, http.StatusUnauthorized, ingest.CodeUnauthorized, "missing or unknown API key")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		usage, enabled, err := recorder.Today(ctx, project.ID)
		if err != nil {
			ingest.RespondError(c, http.StatusInternalServerError, ingest.CodeInternal, "usage lookup failed")
			return
		}
		if !enabled {
			ingest.RespondError(c, http.StatusServiceUnavailable, ingest.CodeInternal, "usage metrics are not enabled")
			return
		}
		c.JSON(http.StatusOK, usage)
	}
}

// RotateKeyHandler replaces the authenticated project's API key. The old key
// stops working once the middleware's cache entry expires.
func RotateKeyHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, _, ok := ingest.AuthFromContext(c)
		if !ok {
			ingest.RespondError(c, http.StatusUnauthorized, ingest.CodeUnauthorized, "missing or unknown API key")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		newKey, err := store.RotateProjectAPIKey(ctx, db, project.ID)
		if err != nil {
			ingest.RespondError(c, http.StatusInternalServerError, ingest.CodeInternal, "key rotation failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"api_key": newKey})
	}
}
