package alert_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/KCuppens/bugwatch/internal/alert"
	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/store"
	"github.com/KCuppens/bugwatch/internal/testkit"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type webhookSink struct {
	mu       sync.Mutex
	payloads []alert.Payload
}

func (s *webhookSink) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p alert.Payload
		_ = json.Unmarshal(body, &p)
		s.mu.Lock()
		s.payloads = append(s.payloads, p)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (s *webhookSink) all() []alert.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alert.Payload, len(s.payloads))
	copy(out, s.payloads)
	return out
}

func seedIssue(t *testing.T, db *gorm.DB, projectID, level, title string) model.Issue {
	t.Helper()
	now := time.Now().UTC()
	issue := model.Issue{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Fingerprint: uuid.NewString()[:16],
		Title:       title,
		Status:      model.IssueStatusUnresolved,
		Level:       level,
		FirstSeen:   now,
		LastSeen:    now,
		Count:       1,
	}
	if err := db.Create(&issue).Error; err != nil {
		t.Fatalf("create issue: %v", err)
	}
	return issue
}

func seedMonitor(t *testing.T, db *gorm.DB, projectID, name string) model.Monitor {
	t.Helper()
	m := model.Monitor{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		URL:       "https://" + name + ".example.com/health",
		Status:    "up",
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("create monitor: %v", err)
	}
	return m
}

func TestEvaluatorNewIssueLevelFilter(t *testing.T) {
	db := testkit.OpenTestDB(t)
	p := testkit.SeedProject(t, db, "pro")

	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()
	ch := seedChannel(t, db, p.ID, model.ChannelTypeWebhook, map[string]any{"url": srv.URL})

	seedRule(t, db, p.ID, map[string]any{"type": "new_issue", "level": "fatal"}, []string{ch.ID})
	seedRule(t, db, p.ID, map[string]any{"type": "new_issue"}, []string{ch.ID})
	seedRule(t, db, p.ID, map[string]any{"type": "monitor_down"}, []string{ch.ID})

	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	issue := seedIssue(t, db, p.ID, "error", "TypeError: boom")
	if err := e.OnNewIssue(context.Background(), p.ID, issue); err != nil {
		t.Fatalf("OnNewIssue: %v", err)
	}

	// Only the unfiltered new_issue rule fires: "fatal" filter does not match
	// "error", and the monitor rule is a different trigger entirely.
	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("%d webhook deliveries, want 1", len(got))
	}
	if got[0].Title != "New error in "+p.Name {
		t.Fatalf("title = %q", got[0].Title)
	}
	if got[0].Message != "TypeError: boom" || got[0].Severity != "error" {
		t.Fatalf("payload = %+v", got[0])
	}
	wantURL := "https://bugwatch.example/dashboard/issues/" + issue.ID + "?project=" + p.ID
	if got[0].URL != wantURL {
		t.Fatalf("url = %q, want %q", got[0].URL, wantURL)
	}
}

func TestEvaluatorLevelMatchIsCaseSensitive(t *testing.T) {
	db := testkit.OpenTestDB(t)
	p := testkit.SeedProject(t, db, "pro")

	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()
	ch := seedChannel(t, db, p.ID, model.ChannelTypeWebhook, map[string]any{"url": srv.URL})
	seedRule(t, db, p.ID, map[string]any{"type": "new_issue", "level": "Error"}, []string{ch.ID})

	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	issue := seedIssue(t, db, p.ID, "error", "boom")
	if err := e.OnNewIssue(context.Background(), p.ID, issue); err != nil {
		t.Fatalf("OnNewIssue: %v", err)
	}
	if len(sink.all()) != 0 {
		t.Fatal("'Error' filter matched 'error' level")
	}
}

func TestEvaluatorSkipsBadRuleAndContinues(t *testing.T) {
	db := testkit.OpenTestDB(t)
	p := testkit.SeedProject(t, db, "pro")

	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()
	ch := seedChannel(t, db, p.ID, model.ChannelTypeWebhook, map[string]any{"url": srv.URL})

	seedRule(t, db, p.ID, map[string]any{"type": "comet_sighting"}, []string{ch.ID})
	seedRule(t, db, p.ID, map[string]any{"type": "new_issue"}, []string{ch.ID})

	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	issue := seedIssue(t, db, p.ID, "warning", "deprecation")
	if err := e.OnNewIssue(context.Background(), p.ID, issue); err != nil {
		t.Fatalf("OnNewIssue: %v", err)
	}
	if len(sink.all()) != 1 {
		t.Fatalf("%d deliveries, want 1 (bad rule skipped, good rule fired)", len(sink.all()))
	}
}

func TestEvaluatorUnknownProjectIsNoOp(t *testing.T) {
	db := testkit.OpenTestDB(t)
	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	issue := model.Issue{ID: uuid.NewString(), Level: "error", Title: "x"}
	if err := e.OnNewIssue(context.Background(), "ghost-project", issue); err != nil {
		t.Fatalf("OnNewIssue for missing project: %v", err)
	}
	if logs := alertLogs(t, db); len(logs) != 0 {
		t.Fatalf("%d alert logs for missing project", len(logs))
	}
}

func TestHandleTriggerMonitorDown(t *testing.T) {
	db := testkit.OpenTestDB(t)
	p := testkit.SeedProject(t, db, "team")

	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()
	ch := seedChannel(t, db, p.ID, model.ChannelTypeWebhook, map[string]any{"url": srv.URL})

	api := seedMonitor(t, db, p.ID, "api")
	other := seedMonitor(t, db, p.ID, "worker")
	seedRule(t, db, p.ID, map[string]any{"type": "monitor_down", "monitor_id": other.ID}, []string{ch.ID})
	seedRule(t, db, p.ID, map[string]any{"type": "monitor_down"}, []string{ch.ID})
	seedRule(t, db, p.ID, map[string]any{"type": "monitor_recovery"}, []string{ch.ID})

	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	err := e.HandleTrigger(context.Background(), alert.Trigger{
		Type:         alert.TriggerMonitorDown,
		ProjectID:    p.ID,
		MonitorID:    api.ID,
		ErrorMessage: "connection refused",
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("HandleTrigger: %v", err)
	}

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("%d deliveries, want 1 (scoped rule targets another monitor)", len(got))
	}
	if got[0].Title != "Monitor Down: api" {
		t.Fatalf("title = %q", got[0].Title)
	}
	if got[0].Message != "api is DOWN: connection refused" {
		t.Fatalf("message = %q", got[0].Message)
	}
	if got[0].Severity != "error" || got[0].TriggerType != alert.TriggerMonitorDown {
		t.Fatalf("payload = %+v", got[0])
	}

	m, _, err := store.FindMonitorByID(context.Background(), db, api.ID)
	if err != nil {
		t.Fatalf("reload monitor: %v", err)
	}
	if m.Status != "down" {
		t.Fatalf("monitor status = %q, want down", m.Status)
	}
}

func TestHandleTriggerMonitorRecovery(t *testing.T) {
	db := testkit.OpenTestDB(t)
	p := testkit.SeedProject(t, db, "team")

	sink := &webhookSink{}
	srv := httptest.NewServer(sink.handler())
	defer srv.Close()
	ch := seedChannel(t, db, p.ID, model.ChannelTypeWebhook, map[string]any{"url": srv.URL})
	m := seedMonitor(t, db, p.ID, "api")
	if err := store.UpdateMonitorStatus(context.Background(), db, m.ID, "down"); err != nil {
		t.Fatalf("set monitor down: %v", err)
	}
	seedRule(t, db, p.ID, map[string]any{"type": "monitor_recovery"}, []string{ch.ID})

	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	err := e.HandleTrigger(context.Background(), alert.Trigger{
		Type:      alert.TriggerMonitorRecovery,
		ProjectID: p.ID,
		MonitorID: m.ID,
	})
	if err != nil {
		t.Fatalf("HandleTrigger: %v", err)
	}

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("%d deliveries, want 1", len(got))
	}
	if got[0].Message != "api is back UP" || got[0].Severity != "info" {
		t.Fatalf("payload = %+v", got[0])
	}
	reloaded, _, _ := store.FindMonitorByID(context.Background(), db, m.ID)
	if reloaded.Status != "up" {
		t.Fatalf("monitor status = %q, want up", reloaded.Status)
	}
}

func TestHandleTriggerUnknownIssue(t *testing.T) {
	db := testkit.OpenTestDB(t)
	e := alert.NewEvaluator(db, alert.NewDispatcher(db), "https://bugwatch.example")
	err := e.HandleTrigger(context.Background(), alert.Trigger{
		Type:      alert.TriggerNewIssue,
		ProjectID: "p",
		IssueID:   "ghost",
	})
	if err != nil {
		t.Fatalf("HandleTrigger for missing issue: %v", err)
	}
}
