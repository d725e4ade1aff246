package alert

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"github.com/KCuppens/bugwatch/internal/model"
	"github.com/KCuppens/bugwatch/internal/store"
	"gorm.io/gorm"
)

// Cooldown scopes the email throttle for one dispatch. Minutes <= 0 means
// every matching alert sends.
type Cooldown struct {
	ProjectID        string
	IssueFingerprint string
	Minutes          int
}

// Dispatcher fans one alert out to its notification channels, writing an
// alert log row per attempt. Channel failures are isolated: one bad webhook
// never blocks the email next to it.
type Dispatcher struct {
	DB         *gorm.DB
	HTTPClient *http.Client
	Now        func() time.Time

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// SendMail is swappable for tests; nil means smtp.SendMail.
	SendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{
		DB:         db,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Now:        time.Now,
	}
}

// Dispatch delivers the payload to every channel id the rule names.
func (d *Dispatcher) Dispatch(ctx context.Context, ruleID string, channelIDs []string, payload Payload, cd *Cooldown) {
	for _, channelID := range channelIDs {
		channel, ok, err := store.FindChannelByID(ctx, d.DB, channelID)
		if err != nil {
			log.Printf("alert: channel %s lookup: %v", channelID, err)
			continue
		}
		if !ok || !channel.IsActive {
			continue
		}

		if channel.Type == model.ChannelTypeEmail && d.emailThrottled(ctx, channel, cd) {
			// Suppressed sends leave no log row.
			continue
		}

		logID, err := store.CreateAlertLog(ctx, d.DB, ruleID, channel.ID, payload.TriggerType, payload.TriggerID, payload.Message)
		if err != nil {
			log.Printf("alert: create log for channel %s: %v", channel.ID, err)
			continue
		}

		if err := d.send(ctx, channel, payload); err != nil {
			log.Printf("alert: send via %s channel %q: %v", channel.Type, channel.Name, err)
			if err := store.MarkAlertLogFailed(ctx, d.DB, logID, err); err != nil {
				log.Printf("alert: mark log %s failed: %v", logID, err)
			}
			continue
		}

		if err := store.MarkAlertLogSent(ctx, d.DB, logID); err != nil {
			log.Printf("alert: mark log %s sent: %v", logID, err)
		}
		if channel.Type == model.ChannelTypeEmail && cd != nil && cd.IssueFingerprint != "" {
			if err := store.RecordEmailSent(ctx, d.DB, cd.ProjectID, cd.IssueFingerprint, channel.ID, d.Now().UTC()); err != nil {
				log.Printf("alert: record email cooldown: %v", err)
			}
		}
	}
}

func (d *Dispatcher) emailThrottled(ctx context.Context, channel model.NotificationChannel, cd *Cooldown) bool {
	if cd == nil || cd.Minutes <= 0 || cd.IssueFingerprint == "" {
		return false
	}
	last, err := store.LastEmailSentAt(ctx, d.DB, cd.ProjectID, cd.IssueFingerprint, channel.ID)
	if err != nil {
		log.Printf("alert: cooldown lookup: %v", err)
		return false
	}
	if last == nil {
		return false
	}
	window := time.Duration(cd.Minutes) * time.Minute
	return d.Now().UTC().Sub(*last) < window
}

func (d *Dispatcher) send(ctx context.Context, channel model.NotificationChannel, payload Payload) error {
	switch channel.Type {
	case model.ChannelTypeEmail:
		return d.sendEmail(channel, payload)
	case model.ChannelTypeWebhook:
		return d.sendWebhook(ctx, channel, payload)
	case model.ChannelTypeSlack:
		return d.sendSlack(ctx, channel, payload)
	default:
		return fmt.Errorf("unknown channel type %q", channel.Type)
	}
}
