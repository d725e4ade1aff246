package model

import (
	"time"

	"gorm.io/datatypes"
)

type Organization struct {
	ID               string    `gorm:"type:varchar(36);primaryKey;column:id"`
	Name             string    `gorm:"type:varchar(200);not null;column:name"`
	SubscriptionTier string    `gorm:"type:varchar(20);not null;default:'free';column:subscription_tier"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime;column:created_at"`
}

func (Organization) TableName() string { return "organizations" }

type Project struct {
	ID             string    `gorm:"type:varchar(36);primaryKey;column:id"`
	OrganizationID string    `gorm:"type:varchar(36);not null;index;column:organization_id"`
	Name           string    `gorm:"type:varchar(200);not null;column:name"`
	APIKey         string    `gorm:"type:varchar(80);not null;uniqueIndex;column:api_key"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime;column:created_at"`
}

func (Project) TableName() string { return "projects" }

const (
	IssueStatusUnresolved = "unresolved"
	IssueStatusResolved   = "resolved"
	IssueStatusIgnored    = "ignored"
)

// Issue aggregates every event sharing a fingerprint within a project.
// (project_id, fingerprint) is unique; concurrent ingestion must never
// create two rows for one fingerprint.
type Issue struct {
	ID          string    `gorm:"type:varchar(36);primaryKey;column:id"`
	ProjectID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_issues_project_fingerprint,priority:1;column:project_id"`
	Fingerprint string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_issues_project_fingerprint,priority:2;column:fingerprint"`
	Title       string    `gorm:"type:text;not null;column:title"`
	Status      string    `gorm:"type:varchar(20);not null;default:'unresolved';index;column:status"`
	Level       string    `gorm:"type:varchar(20);not null;column:level"`
	FirstSeen   time.Time `gorm:"not null;column:first_seen"`
	LastSeen    time.Time `gorm:"not null;index;column:last_seen"`
	Count       int64     `gorm:"not null;default:1;column:count"`
	UserCount   int64     `gorm:"not null;default:0;column:user_count"`
}

func (Issue) TableName() string { return "issues" }

// Event is the persisted raw payload, keyed by the client-generated event id.
type Event struct {
	ID          string         `gorm:"type:varchar(64);primaryKey;column:id"`
	IssueID     string         `gorm:"type:varchar(36);not null;index;column:issue_id"`
	ProjectID   string         `gorm:"type:varchar(36);not null;index:idx_events_project_ts,priority:1;column:project_id"`
	Timestamp   time.Time      `gorm:"not null;index:idx_events_project_ts,priority:2,sort:desc;column:timestamp"`
	Level       string         `gorm:"type:varchar(20);column:level"`
	Environment string         `gorm:"type:varchar(50);column:environment"`
	ReleaseTag  string         `gorm:"type:varchar(100);column:release_tag"`
	UserID      string         `gorm:"type:varchar(255);column:user_id"`
	Country     string         `gorm:"type:varchar(64);column:country"`
	City        string         `gorm:"type:varchar(128);column:city"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null;column:payload"`
}

func (Event) TableName() string { return "events" }

// Monitor is referenced by monitor_down / monitor_recovery alert triggers.
// The polling loop that flips Status lives outside this service.
type Monitor struct {
	ID        string    `gorm:"type:varchar(36);primaryKey;column:id"`
	ProjectID string    `gorm:"type:varchar(36);not null;index;column:project_id"`
	Name      string    `gorm:"type:varchar(200);not null;column:name"`
	URL       string    `gorm:"type:text;not null;column:url"`
	Status    string    `gorm:"type:varchar(20);not null;default:'unknown';column:status"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;column:created_at"`
}

func (Monitor) TableName() string { return "monitors" }
