package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/store"
	"github.com/KCuppens/bugwatch/internal/tier"
	"gorm.io/gorm"
)

// Evaluator walks a project's active rules for one trigger and hands matches
// to the dispatcher. It runs on the queue consumer, off the ingest path.
type Evaluator struct {
	DB         *gorm.DB
	Dispatcher *Dispatcher
	AppURL     string
	Now        func() time.Time
}

func NewEvaluator(db *gorm.DB, dispatcher *Dispatcher, appURL string) *Evaluator {
	return &Evaluator{DB: db, Dispatcher: dispatcher, AppURL: appURL, Now: time.Now}
}

// HandleTrigger routes one queue message to the matching evaluation path.
func (e *Evaluator) HandleTrigger(ctx context.Context, trig Trigger) error {
	switch trig.Type {
	case TriggerNewIssue:
		issue, ok, err := store.FindIssueByID(ctx, e.DB, trig.IssueID)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("alert: trigger for unknown issue %s", trig.IssueID)
			return nil
		}
		return e.OnNewIssue(ctx, trig.ProjectID, issue)
	case TriggerMonitorDown, TriggerMonitorRecovery:
		monitor, ok, err := store.FindMonitorByID(ctx, e.DB, trig.MonitorID)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("alert: trigger for unknown monitor %s", trig.MonitorID)
			return nil
		}
		status := "up"
		if trig.Type == TriggerMonitorDown {
			status = "down"
		}
		if err := store.UpdateMonitorStatus(ctx, e.DB, monitor.ID, status); err != nil {
			log.Printf("alert: monitor %s status update: %v", monitor.ID, err)
		}
		if trig.Type == TriggerMonitorDown {
			return e.OnMonitorDown(ctx, trig.ProjectID, monitor, trig.ErrorMessage)
		}
		return e.OnMonitorRecovery(ctx, trig.ProjectID, monitor)
	default:
		log.Printf("alert: dropping trigger with unknown type %q", trig.Type)
		return nil
	}
}

// OnNewIssue fires new_issue rules whose level filter matches (absent filter
// matches everything; the comparison is exact and case-sensitive).
func (e *Evaluator) OnNewIssue(ctx context.Context, projectID string, issue model.Issue) error {
	project, rules, err := e.projectRules(ctx, projectID)
	if err != nil || project.ID == "" {
		return err
	}

	cooldown := e.emailCooldown(ctx, project, issue.Fingerprint)
	for _, rule := range rules {
		cond, actions, ok := e.parseRule(rule)
		if !ok {
			continue
		}
		if cond.Type != TriggerNewIssue {
			continue
		}
		if cond.Level != "" && cond.Level != issue.Level {
			continue
		}

		payload := Payload{
			Title:       fmt.Sprintf("New %s in %s", issue.Level, project.Name),
			Message:     issue.Title,
			Severity:    issue.Level,
			ProjectName: project.Name,
			TriggerType: TriggerNewIssue,
			TriggerID:   issue.ID,
			URL:         fmt.Sprintf("%s/dashboard/issues/%s?project=%s", e.AppURL, issue.ID, projectID),
			Timestamp:   e.Now().UTC().Format(time.RFC3339),
		}
		e.Dispatcher.Dispatch(ctx, rule.ID, actions, payload, cooldown)
	}
	return nil
}

// OnMonitorDown fires monitor_down rules scoped to this monitor or to all.
func (e *Evaluator) OnMonitorDown(ctx context.Context, projectID string, monitor model.Monitor, errorMessage string) error {
	project, rules, err := e.projectRules(ctx, projectID)
	if err != nil || project.ID == "" {
		return err
	}

	for _, rule := range rules {
		cond, actions, ok := e.parseRule(rule)
		if !ok {
			continue
		}
		if cond.Type != TriggerMonitorDown {
			continue
		}
		if cond.MonitorID != "" && cond.MonitorID != monitor.ID {
			continue
		}

		message := monitor.Name + " is DOWN"
		if errorMessage != "" {
			message += ": " + errorMessage
		}
		payload := Payload{
			Title:       "Monitor Down: " + monitor.Name,
			Message:     message,
			Severity:    "error",
			ProjectName: project.Name,
			TriggerType: TriggerMonitorDown,
			TriggerID:   monitor.ID,
			URL:         fmt.Sprintf("%s/dashboard/uptime?project=%s", e.AppURL, projectID),
			Timestamp:   e.Now().UTC().Format(time.RFC3339),
		}
		e.Dispatcher.Dispatch(ctx, rule.ID, actions, payload, nil)
	}
	return nil
}

// OnMonitorRecovery mirrors OnMonitorDown for the back-up transition.
func (e *Evaluator) OnMonitorRecovery(ctx context.Context, projectID string, monitor model.Monitor) error {
	project, rules, err := e.projectRules(ctx, projectID)
	if err != nil || project.ID == "" {
		return err
	}

	for _, rule := range rules {
		cond, actions, ok := e.parseRule(rule)
		if !ok {
			continue
		}
		if cond.Type != TriggerMonitorRecovery {
			continue
		}
		if cond.MonitorID != "" && cond.MonitorID != monitor.ID {
			continue
		}

		payload := Payload{
			Title:       "Monitor Recovered: " + monitor.Name,
			Message:     monitor.Name + " is back UP",
			Severity:    "info",
			ProjectName: project.Name,
			TriggerType: TriggerMonitorRecovery,
			TriggerID:   monitor.ID,
			URL:         fmt.Sprintf("%s/dashboard/uptime?project=%s", e.AppURL, projectID),
			Timestamp:   e.Now().UTC().Format(time.RFC3339),
		}
		e.Dispatcher.Dispatch(ctx, rule.ID, actions, payload, nil)
	}
	return nil
}

// projectRules loads the project and its active rules. A vanished project is
// a quiet no-op, not an error.
func (e *Evaluator) projectRules(ctx context.Context, projectID string) (model.Project, []model.AlertRule, error) {
	project, ok, err := store.FindProjectByID(ctx, e.DB, projectID)
	if err != nil {
		return model.Project{}, nil, err
	}
	if !ok {
		return model.Project{}, nil, nil
	}
	rules, err := store.ListActiveAlertRules(ctx, e.DB, projectID)
	if err != nil {
		return model.Project{}, nil, err
	}
	return project, rules, nil
}

func (e *Evaluator) parseRule(rule model.AlertRule) (Condition, []string, bool) {
	cond, err := ParseCondition(rule.Condition)
	if err != nil {
		log.Printf("alert: rule %s condition: %v", rule.ID, err)
		return Condition{}, nil, false
	}
	actions, err := ParseActions(rule.Actions)
	if err != nil {
		log.Printf("alert: rule %s actions: %v", rule.ID, err)
		return Condition{}, nil, false
	}
	return cond, actions, true
}

func (e *Evaluator) emailCooldown(ctx context.Context, project model.Project, fingerprint string) *Cooldown {
	org, ok, err := store.FindOrganizationByID(ctx, e.DB, project.OrganizationID)
	if err != nil || !ok {
		if err != nil {
			log.Printf("alert: organization %s lookup: %v", project.OrganizationID, err)
		}
		return nil
	}
	limits := tier.FromString(org.SubscriptionTier).Limits()
	return &Cooldown{
		ProjectID:        project.ID,
		IssueFingerprint: fingerprint,
		Minutes:          limits.EmailCooldownMinutes,
	}
}
