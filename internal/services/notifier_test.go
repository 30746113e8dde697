package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

func testEvent() *models.AlertEvent {
	return &models.AlertEvent{
		RuleID:      "cpu-high",
		RuleName:    "High CPU",
		StationID:   "st-1",
		StationName: "Station One",
		MetricType:  "cpu_usage",
		MetricValue: 95,
		Threshold:   90,
		Severity:    models.SeverityCritical,
		Message:     "CPU above 90%",
	}
}

func TestPublishAlert_PostsJSONEnvelope(t *testing.T) {
	var received map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(config.NotifierConfig{
		WebhookURL: srv.URL,
		Enabled:    true,
		Timeout:    2000,
	}, logging.FromCoreLogger(nil))

	require.NoError(t, notifier.PublishAlert(context.Background(), testEvent()))

	var event models.AlertEvent
	require.NoError(t, json.Unmarshal(received["alert"], &event))
	assert.Equal(t, "cpu-high", event.RuleID)
	assert.Equal(t, 95.0, event.MetricValue)
	assert.NotEmpty(t, received["timestamp"])
}

func TestPublishAlert_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(config.NotifierConfig{
		WebhookURL: srv.URL,
		Enabled:    true,
	}, logging.FromCoreLogger(nil))

	assert.Error(t, notifier.PublishAlert(context.Background(), testEvent()))
}

func TestNewWebhookNotifier_TimeoutIsMilliseconds(t *testing.T) {
	notifier := NewWebhookNotifier(config.NotifierConfig{Timeout: 5000}, logging.FromCoreLogger(nil))
	assert.Equal(t, 5*time.Second, notifier.client.Timeout)

	// Unset timeout falls back to a sane default
	notifier = NewWebhookNotifier(config.NotifierConfig{}, logging.FromCoreLogger(nil))
	assert.Equal(t, 10*time.Second, notifier.client.Timeout)
}

func TestPublishAlert_DisabledNotifierDropsSilently(t *testing.T) {
	notifier := NewWebhookNotifier(config.NotifierConfig{Enabled: false}, logging.FromCoreLogger(nil))
	assert.NoError(t, notifier.PublishAlert(context.Background(), testEvent()))

	// Enabled but no URL behaves the same
	notifier = NewWebhookNotifier(config.NotifierConfig{Enabled: true}, logging.FromCoreLogger(nil))
	assert.NoError(t, notifier.PublishAlert(context.Background(), testEvent()))
}
