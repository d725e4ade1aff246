package httpserver

import (
	"net/http"
	"time"

	"github.com/KCuppens/bugwatch/internal/config"
	"github.com/KCuppens/bugwatch/internal/ingest"
	"github.com/KCuppens/bugwatch/internal/metrics"
	"github.com/KCuppens/bugwatch/internal/openapi"
	"github.com/KCuppens/bugwatch/internal/queue"
	"github.com/KCuppens/bugwatch/internal/ratelimit"
	"github.com/gin-gonic/gin"
	swgui "github.com/swaggest/swgui/v3"
	"gorm.io/gorm"
)

// New assembles the HTTP API. Every ingestion-facing route authenticates
// with a project API key; the dashboard and its session auth live in a
// separate service and are not served here.
func New(cfg config.Config, db *gorm.DB, limiter *ratelimit.Limiter, publisher queue.Publisher, geo ingest.GeoResolver, recorder *metrics.RedisRecorder) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/openapi.json", func(c *gin.Context) { c.JSON(http.StatusOK, openapi.Spec()) })
	router.GET("/docs/*any", gin.WrapH(swgui.New("Bugwatch API", "/openapi.json", "/docs")))

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := router.Group("/api/v1")
	api.Use(RequireAPIKey(db))
	{
		api.POST("/events", ingest.EventsHandler(ingest.Pipeline{
			DB:         db,
			Limiter:    limiter,
			Publisher:  publisher,
			AlertTopic: cfg.NSQAlertTopic,
			Geo:        geo,
			Usage:      usageRecorder(recorder),
		}))
		api.GET("/usage", UsageHandler(recorder))
		api.POST("/keys/rotate", RotateKeyHandler(db))
	}

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// usageRecorder keeps the nil *RedisRecorder out of the ingest.UsageRecorder
// interface value, so the pipeline's nil check still works when metrics are
// disabled.
func usageRecorder(r *metrics.RedisRecorder) ingest.UsageRecorder {
	if r == nil {
		return nil
	}
	return r
}
