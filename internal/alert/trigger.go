package alert

import "time"

// Trigger types carried on the queue and recorded in alert logs.
const (
	TriggerNewIssue        = "new_issue"
	TriggerIssueFrequency  = "issue_frequency"
	TriggerMonitorDown     = "monitor_down"
	TriggerMonitorRecovery = "monitor_recovery"
)

// Trigger is the queue message that moves alert evaluation off the ingest
// request path. Exactly one of IssueID / MonitorID is set, per Type.
type Trigger struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	IssueID   string `json:"issue_id,omitempty"`
	MonitorID string `json:"monitor_id,omitempty"`
	// ErrorMessage carries the probe failure detail on monitor_down.
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
