package alert

import (
	"encoding/json"
	"fmt"
)

// Condition is the rule predicate stored as tagged JSON on alert_rules.
// Exactly the fields for the given Type are meaningful.
type Condition struct {
	Type string `json:"type"`

	// new_issue: optional exact level filter.
	Level string `json:"level,omitempty"`

	// issue_frequency
	Threshold     int `json:"threshold,omitempty"`
	WindowMinutes int `json:"window_minutes,omitempty"`

	// monitor_down / monitor_recovery: optional monitor filter.
	MonitorID string `json:"monitor_id,omitempty"`
}

// ParseCondition decodes and validates a stored rule condition.
func ParseCondition(raw []byte) (Condition, error) {
	var c Condition
	if err := json.Unmarshal(raw, &c); err != nil {
		return Condition{}, err
	}
	switch c.Type {
	case TriggerNewIssue, TriggerMonitorDown, TriggerMonitorRecovery:
	case TriggerIssueFrequency:
		if c.Threshold <= 0 || c.WindowMinutes <= 0 {
			return Condition{}, fmt.Errorf("issue_frequency needs positive threshold and window_minutes")
		}
	default:
		return Condition{}, fmt.Errorf("unknown condition type %q", c.Type)
	}
	return c, nil
}

// ParseActions decodes the rule's action list: notification channel ids.
func ParseActions(raw []byte) ([]string, error) {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type EmailConfig struct {
	Recipients []string `json:"recipients"`
}

type WebhookConfig struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

type SlackConfig struct {
	WebhookURL      string         `json:"webhook_url"`
	Channel         string         `json:"channel,omitempty"`
	MessageTemplate *SlackTemplate `json:"message_template,omitempty"`
}

// SlackTemplate customizes which blocks a Slack message carries and in what
// order, plus the action buttons appended at the end.
type SlackTemplate struct {
	Blocks  []SlackBlockConfig  `json:"blocks"`
	Actions []SlackActionConfig `json:"actions,omitempty"`
}

const (
	SlackBlockHeader     = "header"
	SlackBlockMessage    = "message"
	SlackBlockStackTrace = "stack_trace"
	SlackBlockContext    = "context"
	SlackBlockStats      = "stats"
)

type SlackBlockConfig struct {
	BlockType string `json:"block_type"`
	Enabled   bool   `json:"enabled"`
}

const (
	SlackActionViewIssue = "view_issue"
	SlackActionResolve   = "resolve"
	SlackActionMute      = "mute"
)

type SlackActionConfig struct {
	ActionType string `json:"action_type"`
	Label      string `json:"label"`
	Style      string `json:"style,omitempty"`
}

// DefaultSlackTemplate is used when a channel config carries no template.
func DefaultSlackTemplate() SlackTemplate {
	return SlackTemplate{
		Blocks: []SlackBlockConfig{
			{BlockType: SlackBlockHeader, Enabled: true},
			{BlockType: SlackBlockMessage, Enabled: true},
			{BlockType: SlackBlockStackTrace, Enabled: true},
			{BlockType: SlackBlockContext, Enabled: true},
		},
		Actions: []SlackActionConfig{
			{ActionType: SlackActionViewIssue, Label: "View in Bugwatch", Style: "primary"},
		},
	}
}

// Payload is what every channel transport receives.
type Payload struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Severity    string `json:"severity"`
	ProjectName string `json:"project_name"`
	TriggerType string `json:"trigger_type"`
	TriggerID   string `json:"trigger_id,omitempty"`
	URL         string `json:"url,omitempty"`
	Timestamp   string `json:"timestamp"`
}
