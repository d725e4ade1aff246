package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KCuppens/bugwatch/internal/alert"
	"github.com/KCuppens/bugwatch/internal/config"
	"github.com/KCuppens/bugwatch/internal/httpserver"
	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/ratelimit"
	"github.com/KCuppens/bugwatch/internal/testkit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Exercises the whole path an SDK event takes: authenticated intake over
// HTTP, issue aggregation, the trigger handed to the queue, and the alert
// evaluation that a consumer would run on the other side.
func TestIntegration_EventToWebhookAlert(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testkit.OpenTestDB(t)
	project := testkit.SeedProject(t, db, "team")
	pub := &testkit.RecordingPublisher{}

	cfg := config.Config{HTTPAddr: ":0", NSQAlertTopic: "alert-triggers"}
	api := httptest.NewServer(httpserver.New(cfg, db, ratelimit.NewLimiter(), pub, nil, nil).Handler)
	t.Cleanup(api.Close)

	var hookBody []byte
	var hookSig string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hookBody, _ = io.ReadAll(r.Body)
		hookSig = r.Header.Get("X-Bugwatch-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hook.Close)

	channel := model.NotificationChannel{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Name:      "ops hook",
		Type:      model.ChannelTypeWebhook,
		Config:    mustJSON(t, map[string]any{"url": hook.URL, "secret": "s3cret"}),
		IsActive:  true,
	}
	if err := db.Create(&channel).Error; err != nil {
		t.Fatal(err)
	}
	rule := model.AlertRule{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		Name:      "every new issue",
		Condition: mustJSON(t, map[string]any{"type": "new_issue"}),
		Actions:   mustJSON(t, []string{channel.ID}),
		IsActive:  true,
	}
	if err := db.Create(&rule).Error; err != nil {
		t.Fatal(err)
	}

	// SDK sends the first occurrence of a crash.
	resp := postEvent(t, api.Client(), api.URL, project.APIKey, map[string]any{
		"event_id":  "evt-1",
		"level":     "error",
		"timestamp": "2026-08-30T10:00:00Z",
		"exception": map[string]any{"type": "NullPointerException", "value": "user was nil"},
		"user":      map[string]any{"id": "u-1"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("intake status = %d", resp.StatusCode)
	}

	msgs := pub.Messages()
	if len(msgs) != 1 {
		t.Fatalf("published triggers = %d, want 1", len(msgs))
	}
	var trig alert.Trigger
	if err := json.Unmarshal(msgs[0], &trig); err != nil {
		t.Fatalf("decode trigger: %v", err)
	}
	if trig.Type != alert.TriggerNewIssue || trig.ProjectID != project.ID {
		t.Fatalf("trigger = %+v", trig)
	}
	if topics := pub.Topics(); topics[0] != "alert-triggers" {
		t.Fatalf("published to %q", topics[0])
	}

	// The queue consumer's side of the fence.
	evaluator := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://app.example.com")
	if err := evaluator.HandleTrigger(context.Background(), trig); err != nil {
		t.Fatalf("handle trigger: %v", err)
	}

	if hookBody == nil {
		t.Fatal("webhook never called")
	}
	var payload alert.Payload
	if err := json.Unmarshal(hookBody, &payload); err != nil {
		t.Fatalf("decode webhook body: %v", err)
	}
	if payload.Title != "New error in "+project.Name {
		t.Fatalf("payload title = %q", payload.Title)
	}
	if payload.Message != "NullPointerException: user was nil" {
		t.Fatalf("payload message = %q", payload.Message)
	}
	if want := alert.SignWebhookBody(hookBody, "s3cret"); hookSig != want {
		t.Fatalf("signature = %q, want %q", hookSig, want)
	}

	var logs []model.AlertLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Status != model.AlertLogStatusSent {
		t.Fatalf("alert logs = %+v", logs)
	}

	// A repeat of the same crash aggregates silently.
	resp = postEvent(t, api.Client(), api.URL, project.APIKey, map[string]any{
		"event_id":  "evt-2",
		"level":     "error",
		"timestamp": "2026-08-30T10:05:00Z",
		"exception": map[string]any{"type": "NullPointerException", "value": "user was nil again"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("second intake status = %d", resp.StatusCode)
	}
	if got := len(pub.Messages()); got != 1 {
		t.Fatalf("triggers after repeat = %d, want 1", got)
	}

	var issue model.Issue
	if err := db.Where("project_id = ?", project.ID).First(&issue).Error; err != nil {
		t.Fatal(err)
	}
	if issue.Count != 2 {
		t.Fatalf("issue count = %d, want 2", issue.Count)
	}
}

func TestIntegration_RateLimitedEventNeverReachesQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testkit.OpenTestDB(t)
	project := testkit.SeedProject(t, db, "free")
	pub := &testkit.RecordingPublisher{}

	cfg := config.Config{HTTPAddr: ":0", NSQAlertTopic: "alert-triggers"}
	api := httptest.NewServer(httpserver.New(cfg, db, ratelimit.NewLimiter(), pub, nil, nil).Handler)
	t.Cleanup(api.Close)

	limited := 0
	for i := 0; i < 110; i++ {
		resp := postEvent(t, api.Client(), api.URL, project.APIKey, map[string]any{
			"event_id":  uuid.NewString(),
			"level":     "error",
			"timestamp": "2026-08-30T10:00:00Z",
			"exception": map[string]any{"type": "E", "value": "v"},
		})
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	// The bucket refills continuously, so a slow test run may earn back a
	// token or two mid-loop.
	if limited < 8 || limited > 10 {
		t.Fatalf("rate limited = %d, want about 10", limited)
	}
	// One trigger for the first occurrence only; denied events publish nothing.
	if got := len(pub.Messages()); got != 1 {
		t.Fatalf("triggers = %d, want 1", got)
	}
}

func postEvent(t *testing.T, client *http.Client, baseURL, apiKey string, event map[string]any) *http.Response {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func mustJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return datatypes.JSON(raw)
}
