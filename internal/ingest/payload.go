package ingest

import (
	"encoding/json"
	"strings"

	"github.com/KCuppens/bugwatch/internal/fingerprint"
)

// InboundEvent is the client-submitted occurrence. Unknown fields ride along
// in the raw payload; only the fields the pipeline acts on are bound here.
type InboundEvent struct {
	EventID     string                 `json:"event_id"`
	Timestamp   string                 `json:"timestamp"`
	Level       string                 `json:"level"`
	Message     string                 `json:"message"`
	Exception   *fingerprint.Exception `json:"exception"`
	Environment string                 `json:"environment"`
	Release     string                 `json:"release"`
	Platform    string                 `json:"platform"`
	Tags        map[string]string      `json:"tags"`
	User        *EventUser             `json:"user"`
	Breadcrumbs json.RawMessage        `json:"breadcrumbs"`
	SDK         json.RawMessage        `json:"sdk"`
}

type EventUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
}

// Validate checks the minimum the pipeline needs: something to fingerprint.
func (e *InboundEvent) Validate() string {
	hasException := e.Exception != nil && strings.TrimSpace(e.Exception.Type) != ""
	if !hasException && strings.TrimSpace(e.Message) == "" {
		return "event needs an exception or a message"
	}
	return ""
}

// Normalize fills defaults the rest of the pipeline relies on.
func (e *InboundEvent) Normalize() {
	if strings.TrimSpace(e.Level) == "" {
		e.Level = "error"
	}
}

// DistinctID picks the identity used for user counting, preferring the
// explicit id over username and email.
func (e *InboundEvent) DistinctID() string {
	if e.User == nil {
		return ""
	}
	if e.User.ID != "" {
		return e.User.ID
	}
	if e.User.Username != "" {
		return e.User.Username
	}
	return e.User.Email
}

// Fingerprint derives the grouping key and display title for this event.
func (e *InboundEvent) Fingerprint() (fp, title string) {
	if e.Exception != nil && strings.TrimSpace(e.Exception.Type) != "" {
		return fingerprint.Generate(*e.Exception), fingerprint.Title(*e.Exception)
	}
	msg := e.Message
	return fingerprint.GenerateFromMessage(msg), fingerprint.TruncateMessage(msg)
}
