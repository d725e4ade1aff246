package model

import (
	"time"

	"gorm.io/datatypes"
)

type AlertRule struct {
	ID        string         `gorm:"type:varchar(36);primaryKey;column:id" json:"id"`
	ProjectID string         `gorm:"type:varchar(36);not null;index;column:project_id" json:"project_id"`
	Name      string         `gorm:"type:varchar(200);not null;column:name" json:"name"`
	Condition datatypes.JSON `gorm:"type:jsonb;not null;column:condition" json:"condition"`
	Actions   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]';column:actions" json:"actions"`
	IsActive  bool           `gorm:"not null;default:true;index;column:is_active" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (AlertRule) TableName() string { return "alert_rules" }

const (
	ChannelTypeEmail   = "email"
	ChannelTypeWebhook = "webhook"
	ChannelTypeSlack   = "slack"
)

type NotificationChannel struct {
	ID        string         `gorm:"type:varchar(36);primaryKey;column:id" json:"id"`
	ProjectID string         `gorm:"type:varchar(36);not null;index;column:project_id" json:"project_id"`
	Name      string         `gorm:"type:varchar(200);not null;column:name" json:"name"`
	Type      string         `gorm:"type:varchar(16);not null;column:type" json:"type"`
	Config    datatypes.JSON `gorm:"type:jsonb;not null;column:config" json:"config"`
	IsActive  bool           `gorm:"not null;default:true;index;column:is_active" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (NotificationChannel) TableName() string { return "notification_channels" }

const (
	AlertLogStatusPending = "pending"
	AlertLogStatusSent    = "sent"
	AlertLogStatusFailed  = "failed"
)

// AlertLog is the append-only audit record of one dispatch attempt. A row is
// created as "pending" before the transport is called so a crash mid-delivery
// still leaves a trail.
type AlertLog struct {
	ID          string     `gorm:"type:varchar(36);primaryKey;column:id" json:"id"`
	RuleID      string     `gorm:"type:varchar(36);not null;index;column:rule_id" json:"rule_id"`
	ChannelID   string     `gorm:"type:varchar(36);index;column:channel_id" json:"channel_id"`
	TriggerType string     `gorm:"type:varchar(32);not null;column:trigger_type" json:"trigger_type"`
	TriggerID   string     `gorm:"type:varchar(64);column:trigger_id" json:"trigger_id"`
	Status      string     `gorm:"type:varchar(16);not null;index;column:status" json:"status"`
	Message     string     `gorm:"type:text;not null;column:message" json:"message"`
	ErrorDetail string     `gorm:"type:text;not null;default:'';column:error_detail" json:"error_detail"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index;column:created_at" json:"created_at"`
	SentAt      *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (AlertLog) TableName() string { return "alert_logs" }

// EmailRateLimit enforces the tier cooldown on repeated email alerts for the
// same (project, issue fingerprint, channel). Upserted on successful send.
type EmailRateLimit struct {
	ID               string    `gorm:"type:varchar(36);primaryKey;column:id" json:"id"`
	ProjectID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_email_rate_limits_key,priority:1;column:project_id" json:"project_id"`
	IssueFingerprint string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_email_rate_limits_key,priority:2;column:issue_fingerprint" json:"issue_fingerprint"`
	ChannelID        string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_email_rate_limits_key,priority:3;column:channel_id" json:"channel_id"`
	LastSentAt       time.Time `gorm:"not null;index;column:last_sent_at" json:"last_sent_at"`
}

func (EmailRateLimit) TableName() string { return "email_rate_limits" }
