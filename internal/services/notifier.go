// Package services holds outbound collaborator integrations.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// WebhookNotifier publishes alert events to an external webhook. Delivery is
// best effort: callers treat a publish failure as non-fatal.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	logger  logging.Logger
}

func NewWebhookNotifier(cfg config.NotifierConfig, log logging.Logger) *WebhookNotifier {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		enabled: cfg.Enabled && cfg.WebhookURL != "",
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// PublishAlert posts the alert event as JSON. A disabled notifier accepts
// and drops events silently.
func (n *WebhookNotifier) PublishAlert(ctx context.Context, event *models.AlertEvent) error {
	if !n.enabled {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":      "alert_triggered",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"alert":     event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("alert event published",
		"rule_id", event.RuleID, "station_id", event.StationID)
	return nil
}
