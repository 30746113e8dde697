package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/metrics"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

// EventPublisher is the best-effort messaging collaborator notified on alert
// trigger. Publish failures never propagate into the evaluation path.
type EventPublisher interface {
	PublishAlert(ctx context.Context, event *models.AlertEvent) error
}

// Diagnoser receives triggered alerts and drives the diagnostic session
// lifecycle. The call must not block the evaluation path.
type Diagnoser interface {
	HandleTriggeredAlert(ctx context.Context, rule models.AlertRule, sample *models.MetricSample)
}

// Evaluator evaluates incoming metric samples against the rule store and
// maintains per-(station, rule) active-alert state. The active map is the
// single source of truth gating re-triggering: a rule fires once per
// condition onset and again only after an intervening resolution.
type Evaluator struct {
	rules     *RuleStore
	publisher EventPublisher
	diagnoser Diagnoser
	logger    logging.Logger

	mu     sync.Mutex
	active map[string]*models.ActiveAlert // key: stationID|ruleID
}

func NewEvaluator(rules *RuleStore, publisher EventPublisher, diagnoser Diagnoser, log logging.Logger) *Evaluator {
	return &Evaluator{
		rules:     rules,
		publisher: publisher,
		diagnoser: diagnoser,
		logger:    log,
		active:    make(map[string]*models.ActiveAlert),
	}
}

func activeKey(stationID, ruleID string) string {
	return stationID + "|" + ruleID
}

// Evaluate processes one metric sample and returns the rules that newly
// triggered for it. Side effects per newly triggered rule: a best-effort
// publish and an asynchronous diagnosis request. Rules that stop matching
// for this station resolve silently (logged, no re-trigger).
func (e *Evaluator) Evaluate(ctx context.Context, sample *models.MetricSample) []models.AlertRule {
	candidates := e.rules.EnabledForMetric(sample.MetricType)

	var triggered []models.AlertRule
	var resolved []models.AlertRule

	e.mu.Lock()
	for _, rule := range candidates {
		key := activeKey(sample.StationID, rule.ID)
		matches, known := ruleMatches(rule, sample.Value)
		if !known {
			e.logger.Warn("rule has unknown comparison operator",
				"rule", rule.ID, "operator", rule.Operator)
		}
		_, isActive := e.active[key]

		switch {
		case matches && !isActive:
			e.active[key] = &models.ActiveAlert{
				StationID:   sample.StationID,
				RuleID:      rule.ID,
				TriggeredAt: time.Now(),
				LastValue:   sample.Value,
			}
			triggered = append(triggered, rule)
		case matches && isActive:
			// Still firing; update the observed value, emit nothing.
			e.active[key].LastValue = sample.Value
		case !matches && isActive:
			delete(e.active, key)
			resolved = append(resolved, rule)
		}
	}
	e.mu.Unlock()

	for _, rule := range resolved {
		metrics.AlertsResolved.WithLabelValues(rule.Name, rule.Severity).Inc()
		e.logger.Info("alert resolved",
			"rule", rule.Name,
			"station", sample.StationID,
			"metric", sample.MetricType,
			"value", sample.Value)
	}

	for _, rule := range triggered {
		metrics.AlertsTriggered.WithLabelValues(rule.Name, rule.Severity).Inc()
		e.logger.Info("alert triggered",
			"rule", rule.Name,
			"station", sample.StationID,
			"metric", sample.MetricType,
			"value", sample.Value,
			"threshold", rule.Threshold)

		e.publish(ctx, rule, sample)

		if e.diagnoser != nil {
			e.diagnoser.HandleTriggeredAlert(ctx, rule, sample)
		}
	}

	return triggered
}

// publish sends the trigger event to the messaging collaborator. Failures
// are logged and swallowed: the alert is triggered regardless of whether the
// downstream notification landed.
func (e *Evaluator) publish(ctx context.Context, rule models.AlertRule, sample *models.MetricSample) {
	if e.publisher == nil {
		return
	}
	event := &models.AlertEvent{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		StationID:   sample.StationID,
		StationName: sample.StationName,
		MetricType:  sample.MetricType,
		MetricValue: sample.Value,
		Threshold:   rule.Threshold,
		Severity:    rule.Severity,
		Message:     rule.Message,
	}
	if err := e.publisher.PublishAlert(ctx, event); err != nil {
		metrics.AlertPublishFailures.Inc()
		e.logger.Warn("alert publish failed",
			"rule", rule.Name,
			"station", sample.StationID,
			"error", err)
	}
}

// ActiveAlerts returns a snapshot of the current active-alert records.
func (e *Evaluator) ActiveAlerts() []*models.ActiveAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.ActiveAlert, 0, len(e.active))
	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// IsActive reports whether a (station, rule) pair currently has an active
// alert.
func (e *Evaluator) IsActive(stationID, ruleID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[activeKey(stationID, ruleID)]
	return ok
}

// ruleMatches evaluates the rule operator against (value, threshold). An
// unknown operator never matches; the second result reports whether the
// operator was recognized so the caller can warn.
func ruleMatches(rule models.AlertRule, value float64) (matched, known bool) {
	switch rule.Operator {
	case models.OpGreaterThan:
		return value > rule.Threshold, true
	case models.OpGreaterOrEqual:
		return value >= rule.Threshold, true
	case models.OpLessThan:
		return value < rule.Threshold, true
	case models.OpLessOrEqual:
		return value <= rule.Threshold, true
	case models.OpEqual:
		return value == rule.Threshold, true
	default:
		return false, false
	}
}

// ProblemID derives the dedup key shared by alert-level and session-level
// deduplication: one problem per (station, rule) pair.
func ProblemID(stationID, ruleID string) string {
	return fmt.Sprintf("%s:%s", stationID, ruleID)
}
