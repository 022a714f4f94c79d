// Package notify delivers fired alerts to external channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quantpair/statarb/internal/alerts"
	"go.uber.org/zap"
)

// Notifier delivers a fired alert to some destination.
type Notifier interface {
	Notify(ctx context.Context, alert alerts.Alert) error
}

// LogNotifier writes alerts to the structured log. It is always available
// and serves as the default sink.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at a level matching its severity.
func (n *LogNotifier) Notify(_ context.Context, alert alerts.Alert) error {
	fields := []zap.Field{
		zap.String("rule_id", alert.RuleID),
		zap.String("type", string(alert.Type)),
		zap.String("symbol", alert.Symbol),
		zap.Float64("value", alert.Value),
		zap.Float64("threshold", alert.Threshold),
	}
	switch alert.Severity {
	case alerts.SeverityCritical:
		n.logger.Error(alert.Message, fields...)
	case alerts.SeverityWarning:
		n.logger.Warn(alert.Message, fields...)
	default:
		n.logger.Info(alert.Message, fields...)
	}
	return nil
}

// DiscordNotifier posts alerts to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a webhook-backed notifier.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordPayload struct {
	Content string `json:"content"`
}

// Notify posts the alert message to the webhook.
func (n *DiscordNotifier) Notify(ctx context.Context, alert alerts.Alert) error {
	content := fmt.Sprintf("[%s] %s", alert.Severity, alert.Message)
	body, err := json.Marshal(discordPayload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned %s", resp.Status)
	}
	return nil
}

// Listener adapts a Notifier into an alert engine listener.
func Listener(n Notifier, timeout time.Duration) alerts.Listener {
	return func(alert alerts.Alert) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return n.Notify(ctx, alert)
	}
}
