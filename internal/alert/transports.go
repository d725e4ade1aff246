package alert

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/KCuppens/bugwatch/internal/model"
)

func severityColor(severity string) string {
	switch severity {
	case "fatal", "error":
		return "#dc2626"
	case "warning":
		return "#f59e0b"
	case "info":
		return "#3b82f6"
	default:
		return "#6b7280"
	}
}

func severityEmoji(severity string) string {
	switch severity {
	case "fatal":
		return ":skull:"
	case "error":
		return ":x:"
	case "warning":
		return ":warning:"
	case "info":
		return ":information_source:"
	default:
		return ":bell:"
	}
}

func (d *Dispatcher) sendEmail(channel model.NotificationChannel, payload Payload) error {
	var cfg EmailConfig
	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("email config: %w", err)
	}
	if len(cfg.Recipients) == 0 {
		return errors.New("no email recipients configured")
	}

	host := strings.TrimSpace(d.SMTPHost)
	if host == "" {
		return errors.New("SMTP_HOST not configured")
	}
	port := d.SMTPPort
	if port <= 0 {
		port = 587
	}
	from := strings.TrimSpace(d.SMTPFrom)
	if from == "" {
		return errors.New("SMTP_FROM not configured")
	}

	subject := "[Bugwatch] " + payload.Title
	text := fmt.Sprintf("%s\n\n%s\n\nProject: %s\nSeverity: %s\nTime: %s",
		payload.Title, payload.Message, payload.ProjectName, payload.Severity, payload.Timestamp)

	const boundary = "bugwatch-alert-boundary"
	var msg bytes.Buffer
	msg.WriteString("To: " + strings.Join(cfg.Recipients, ", ") + "\r\n")
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")
	msg.WriteString("--" + boundary + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(text + "\r\n")
	msg.WriteString("--" + boundary + "\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	msg.WriteString(emailHTML(payload) + "\r\n")
	msg.WriteString("--" + boundary + "--\r\n")

	var auth smtp.Auth
	if strings.TrimSpace(d.SMTPUsername) != "" {
		auth = smtp.PlainAuth("", d.SMTPUsername, d.SMTPPassword, host)
	}
	send := d.SendMail
	if send == nil {
		send = smtp.SendMail
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	return send(addr, auth, from, cfg.Recipients, msg.Bytes())
}

func emailHTML(payload Payload) string {
	viewLink := ""
	if payload.URL != "" {
		viewLink = fmt.Sprintf(
			`<a href="%s" style="display: inline-block; padding: 12px 24px; background-color: #3b82f6; color: white; text-decoration: none; border-radius: 6px; margin-top: 16px;">View in Bugwatch</a>`,
			payload.URL)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f3f4f6; padding: 20px; margin: 0;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; border-radius: 8px; overflow: hidden;">
    <div style="background-color: %s; padding: 16px 24px;">
      <h1 style="color: white; margin: 0; font-size: 18px;">%s</h1>
    </div>
    <div style="padding: 24px;">
      <p style="color: #374151; line-height: 1.6; margin: 0 0 16px 0;">%s</p>
      <table style="width: 100%%; border-collapse: collapse; margin-top: 16px;">
        <tr><td style="padding: 8px 0; color: #6b7280; font-size: 14px;">Project</td><td style="padding: 8px 0; color: #111827; font-size: 14px; text-align: right;">%s</td></tr>
        <tr><td style="padding: 8px 0; color: #6b7280; font-size: 14px;">Severity</td><td style="padding: 8px 0; color: #111827; font-size: 14px; text-align: right;">%s</td></tr>
        <tr><td style="padding: 8px 0; color: #6b7280; font-size: 14px;">Time</td><td style="padding: 8px 0; color: #111827; font-size: 14px; text-align: right;">%s</td></tr>
      </table>
      %s
    </div>
    <div style="background-color: #f9fafb; padding: 16px 24px; text-align: center;">
      <p style="color: #6b7280; font-size: 12px; margin: 0;">Sent by Bugwatch</p>
    </div>
  </div>
</body>
</html>`,
		severityColor(payload.Severity), payload.Title, payload.Message,
		payload.ProjectName, payload.Severity, payload.Timestamp, viewLink)
}

func (d *Dispatcher) sendWebhook(ctx context.Context, channel model.NotificationChannel, payload Payload) error {
	var cfg WebhookConfig
	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return errors.New("webhook url empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Secret != "" {
		req.Header.Set("X-Bugwatch-Signature", SignWebhookBody(body, cfg.Secret))
	}

	res, err := d.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("webhook http %d", res.StatusCode)
	}
	return nil
}

// SignWebhookBody computes the hex HMAC-SHA256 signature receivers verify.
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (d *Dispatcher) sendSlack(ctx context.Context, channel model.NotificationChannel, payload Payload) error {
	var cfg SlackConfig
	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("slack config: %w", err)
	}
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return errors.New("slack webhook_url empty")
	}

	template := DefaultSlackTemplate()
	if cfg.MessageTemplate != nil {
		template = *cfg.MessageTemplate
	}

	blocks := buildSlackBlocks(template, payload)
	slackPayload := map[string]any{
		"attachments": []map[string]any{{
			"color":  severityColor(payload.Severity),
			"blocks": blocks,
		}},
	}
	if cfg.Channel != "" {
		slackPayload["channel"] = cfg.Channel
	}

	body, err := json.Marshal(slackPayload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := d.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("slack webhook http %d", res.StatusCode)
	}
	return nil
}

func buildSlackBlocks(template SlackTemplate, payload Payload) []map[string]any {
	blocks := make([]map[string]any, 0, len(template.Blocks)+1)
	for _, bc := range template.Blocks {
		if !bc.Enabled {
			continue
		}
		switch bc.BlockType {
		case SlackBlockHeader:
			blocks = append(blocks, map[string]any{
				"type": "header",
				"text": map[string]any{
					"type":  "plain_text",
					"text":  severityEmoji(payload.Severity) + " " + payload.Title,
					"emoji": true,
				},
			})
		case SlackBlockMessage:
			blocks = append(blocks, map[string]any{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": "`" + payload.Message + "`",
				},
			})
		case SlackBlockContext:
			blocks = append(blocks, map[string]any{
				"type": "context",
				"elements": []map[string]any{{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Project:* %s | *Severity:* %s | *Time:* %s",
						payload.ProjectName, payload.Severity, payload.Timestamp),
				}},
			})
		case SlackBlockStackTrace, SlackBlockStats:
			// Needs data the payload does not carry yet.
		}
	}

	elements := make([]map[string]any, 0, len(template.Actions))
	for _, ac := range template.Actions {
		if payload.URL == "" {
			continue
		}
		url := payload.URL
		switch ac.ActionType {
		case SlackActionViewIssue:
		case SlackActionResolve:
			url += "?action=resolve"
		case SlackActionMute:
			url += "?action=mute"
		default:
			continue
		}
		button := map[string]any{
			"type": "button",
			"text": map[string]any{"type": "plain_text", "text": ac.Label},
			"url":  url,
		}
		if ac.Style != "" {
			button["style"] = ac.Style
		}
		elements = append(elements, button)
	}
	if len(elements) > 0 {
		blocks = append(blocks, map[string]any{"type": "actions", "elements": elements})
	}
	return blocks
}
