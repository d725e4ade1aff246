package tier

import "strings"

// Tier is the subscription level controlling numeric limits. Totally ordered
// by Level(); unknown strings normalize to Free rather than erroring so a bad
// database value can never block ingestion.
type Tier int

const (
	Free Tier = iota
	Pro
	Team
	Enterprise
)

func FromString(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pro":
		return Pro
	case "team":
		return Team
	case "enterprise":
		return Enterprise
	default:
		return Free
	}
}

func (t Tier) String() string {
	switch t {
	case Pro:
		return "pro"
	case Team:
		return "team"
	case Enterprise:
		return "enterprise"
	default:
		return "free"
	}
}

// Level is the hierarchy position for capability comparisons.
func (t Tier) Level() int { return int(t) }

// Includes reports whether t carries all capabilities of other.
func (t Tier) Includes(other Tier) bool { return t.Level() >= other.Level() }

type Features struct {
	Webhooks              bool
	SessionReplay         bool
	PerformanceMonitoring bool
	SSO                   bool
	AuditLogs             bool
}

// Limits are the numeric limits for a tier. RetentionDays -1 means unlimited.
// EmailCooldownMinutes 0 means real-time (no cooldown).
type Limits struct {
	Tier                 Tier
	RateLimitPerMinute   int
	EmailCooldownMinutes int
	RetentionDays        int
	Features             Features
}

func (t Tier) Limits() Limits {
	switch t {
	case Pro:
		return Limits{
			Tier:                 Pro,
			RateLimitPerMinute:   1000,
			EmailCooldownMinutes: 15,
			RetentionDays:        90,
			Features:             Features{Webhooks: true},
		}
	case Team:
		return Limits{
			Tier:                 Team,
			RateLimitPerMinute:   5000,
			EmailCooldownMinutes: 5,
			RetentionDays:        365,
			Features:             Features{Webhooks: true, SessionReplay: true, PerformanceMonitoring: true},
		}
	case Enterprise:
		return Limits{
			Tier:                 Enterprise,
			RateLimitPerMinute:   10000,
			EmailCooldownMinutes: 0,
			RetentionDays:        -1,
			Features:             Features{Webhooks: true, SessionReplay: true, PerformanceMonitoring: true, SSO: true, AuditLogs: true},
		}
	default:
		return Limits{
			Tier:                 Free,
			RateLimitPerMinute:   100,
			EmailCooldownMinutes: 60,
			RetentionDays:        7,
		}
	}
}
