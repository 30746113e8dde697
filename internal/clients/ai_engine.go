// Package clients holds the REST clients for external collaborators.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// AIEngine is the diagnosis collaborator contract. Diagnose is expected to
// have meaningful latency; callers issue it from a background task with its
// own timeout.
type AIEngine interface {
	Diagnose(ctx context.Context, req *models.DiagnosisRequest) (*models.DiagnosisResponse, error)
	HealthCheck(ctx context.Context) error
}

// AIEngineClient wraps the REST client for the AI diagnosis engine. A
// circuit breaker keeps a flapping engine from soaking up alert-processing
// goroutines.
type AIEngineClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

func NewAIEngineClient(cfg config.AIEngineConfig, log logger.Logger) *AIEngineClient {
	settings := gobreaker.Settings{
		Name:    "ai-diagnosis-engine",
		Timeout: time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerMaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("AI engine breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &AIEngineClient{
		baseURL: cfg.Endpoint,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}
}

// Diagnose requests a diagnosis for an alert context via REST API.
func (c *AIEngineClient) Diagnose(ctx context.Context, req *models.DiagnosisRequest) (*models.DiagnosisResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doDiagnose(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.DiagnosisResponse), nil
}

func (c *AIEngineClient) doDiagnose(ctx context.Context, req *models.DiagnosisRequest) (*models.DiagnosisResponse, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diagnosis request: %w", err)
	}

	endpointURL := fmt.Sprintf("%s/api/v1/diagnose", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpointURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call AI engine diagnose endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AI engine diagnose failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result models.DiagnosisResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode diagnosis response: %w", err)
	}

	c.logger.Debug("diagnosis completed", "problem", req.ProblemID, "action", result.Action, "confidence", result.Confidence)
	return &result, nil
}

// HealthCheck checks the health of the AI engine via REST API.
func (c *AIEngineClient) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	endpointURL := fmt.Sprintf("%s/health", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpointURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call AI engine health endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("AI engine health check failed with status %d", resp.StatusCode)
	}

	return nil
}
