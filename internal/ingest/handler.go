package ingest

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KCuppens/bugwatch/internal/alert"
	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/queue"
	"github.com/KCuppens/bugwatch/internal/ratelimit"
	"github.com/KCuppens/bugwatch/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxPayloadBytes = 5 << 20

// GeoResolver annotates events with a coarse location from the client IP.
type GeoResolver interface {
	Locate(ip string) (country, city string)
}

// UsageRecorder tracks per-project ingestion counters. Implementations must
// tolerate being called from the hot path; failures are the recorder's to
// swallow.
type UsageRecorder interface {
	Record(ctx context.Context, projectID, outcome, distinctID string)
}

// Pipeline carries the dependencies of the event intake endpoint.
type Pipeline struct {
	DB         *gorm.DB
	Limiter    *ratelimit.Limiter
	Publisher  queue.Publisher
	AlertTopic string
	Geo        GeoResolver
	Usage      UsageRecorder
}

// EventsHandler runs the intake sequence: rate limit, decode, dedup,
// fingerprint, aggregate, persist, then hand the alert trigger to the queue.
// Authentication happens upstream in the router middleware.
func EventsHandler(p Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, tv, ok := AuthFromContext(c)
		if !ok {
			RespondError(c, http.StatusUnauthorized, CodeUnauthorized, "missing or unknown API key")
			return
		}

		res := p.Limiter.Check(project.ID, tv)
		if !res.Allowed {
			p.record(c, project.ID, "rate_limited", "")
			c.Header("Retry-After", strconv.Itoa(res.RetryAfterSecs))
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			RespondError(c, http.StatusTooManyRequests, CodeRateLimited,
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", res.RetryAfterSecs))
			return
		}

		body, err := readBody(c, maxPayloadBytes)
		if err != nil {
			RespondError(c, http.StatusUnprocessableEntity, CodeValidation, "unreadable request body")
			return
		}
		var ev InboundEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			RespondError(c, http.StatusUnprocessableEntity, CodeValidation, "body is not a JSON event")
			return
		}
		if msg := ev.Validate(); msg != "" {
			RespondError(c, http.StatusUnprocessableEntity, CodeValidation, msg)
			return
		}
		ev.Normalize()
		if ev.EventID == "" {
			ev.EventID = uuid.NewString()
		}

		receivedAt := time.Now().UTC()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		exists, err := store.EventExists(ctx, p.DB, project.ID, ev.EventID)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, CodeInternal, "dedup lookup failed")
			return
		}
		if exists {
			p.record(c, project.ID, "duplicate", "")
			c.JSON(http.StatusAccepted, gin.H{"id": ev.EventID, "status": "duplicate"})
			return
		}

		fp, title := ev.Fingerprint()
		ts := store.ParseEventTimestamp(ev.Timestamp, receivedAt)
		issue, created, err := store.FindOrCreateIssue(ctx, p.DB, project.ID, fp, title, ev.Level, ts)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, CodeInternal, "issue aggregation failed")
			return
		}

		distinctID := ev.DistinctID()
		newUser := false
		if distinctID != "" {
			seen, err := store.IssueSeenUser(ctx, p.DB, issue.ID, distinctID)
			if err == nil && !seen {
				newUser = true
			}
		}

		row := model.Event{
			ID:          ev.EventID,
			IssueID:     issue.ID,
			ProjectID:   project.ID,
			Timestamp:   ts,
			Level:       ev.Level,
			Environment: ev.Environment,
			ReleaseTag:  ev.Release,
			UserID:      distinctID,
			Payload:     datatypes.JSON(body),
		}
		if p.Geo != nil && ev.User != nil && ev.User.IPAddress != "" {
			row.Country, row.City = p.Geo.Locate(ev.User.IPAddress)
		}
		inserted, err := store.InsertEvent(ctx, p.DB, &row)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, CodeInternal, "event persistence failed")
			return
		}
		if !inserted {
			// Lost a concurrent race on the same event id.
			p.record(c, project.ID, "duplicate", "")
			c.JSON(http.StatusAccepted, gin.H{"id": ev.EventID, "status": "duplicate"})
			return
		}
		if newUser {
			if err := store.IncrementIssueUserCount(ctx, p.DB, issue.ID); err != nil {
				log.Printf("ingest: user count bump for issue %s: %v", issue.ID, err)
			}
		}

		p.record(c, project.ID, "accepted", distinctID)

		if created && p.Publisher != nil {
			trigger, _ := json.Marshal(alert.Trigger{
				Type:       alert.TriggerNewIssue,
				ProjectID:  project.ID,
				IssueID:    issue.ID,
				OccurredAt: receivedAt,
			})
			// Alerting is best-effort; intake already succeeded.
			if err := p.Publisher.Publish(p.AlertTopic, trigger); err != nil {
				log.Printf("ingest: alert trigger publish for issue %s: %v", issue.ID, err)
			}
		}

		c.JSON(http.StatusAccepted, gin.H{"id": ev.EventID, "status": "accepted"})
	}
}

func (p Pipeline) record(c *gin.Context, projectID, outcome, distinctID string) {
	if p.Usage == nil {
		return
	}
	p.Usage.Record(c.Request.Context(), projectID, outcome, distinctID)
}

func readBody(c *gin.Context, limit int64) ([]byte, error) {
	defer c.Request.Body.Close()

	raw := io.LimitReader(c.Request.Body, limit)
	enc := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
	if strings.Contains(enc, "gzip") {
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(io.LimitReader(zr, limit))
	}
	return io.ReadAll(raw)
}
