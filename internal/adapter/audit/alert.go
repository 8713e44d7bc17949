package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"adpilot/internal/domain"
)

// LogAlerter writes security alerts to the structured log. Always available,
// even with no external channel configured.
type LogAlerter struct {
	logger *slog.Logger
}

// NewLogAlerter creates a log-backed alert channel.
func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Name() string { return "log" }

// Notify emits the alert at a level matching its severity.
func (a *LogAlerter) Notify(_ context.Context, alert domain.Alert) error {
	attrs := []any{
		"severity", alert.Severity,
		"identity", alert.Identity,
		"at", alert.At,
	}
	if alert.Severity == domain.AlertHigh {
		a.logger.Error("security alert: "+alert.Message, attrs...)
	} else {
		a.logger.Warn("security alert: "+alert.Message, attrs...)
	}
	return nil
}

// SlackAlerter posts security alerts to a Slack incoming webhook.
type SlackAlerter struct {
	webhookURL string
}

// NewSlackAlerter creates a Slack alert channel for the given webhook URL.
func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{webhookURL: webhookURL}
}

func (a *SlackAlerter) Name() string { return "slack" }

// Notify posts the alert. High-severity alerts get an attention prefix so
// they stand out in a busy channel.
func (a *SlackAlerter) Notify(ctx context.Context, alert domain.Alert) error {
	prefix := ":warning:"
	if alert.Severity == domain.AlertHigh {
		prefix = ":rotating_light:"
	}
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("%s [%s] %s (identity: %s)",
			prefix, alert.Severity, alert.Message, alert.Identity),
	}
	if err := slack.PostWebhookContext(ctx, a.webhookURL, msg); err != nil {
		return fmt.Errorf("post slack alert: %w", err)
	}
	return nil
}
