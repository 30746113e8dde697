package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/models"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []*models.AlertEvent
	err    error
}

func (p *capturingPublisher) PublishAlert(_ context.Context, event *models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type capturingDiagnoser struct {
	mu    sync.Mutex
	calls []string
}

func (d *capturingDiagnoser) HandleTriggeredAlert(_ context.Context, rule models.AlertRule, sample *models.MetricSample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, ProblemID(sample.StationID, rule.ID))
}

func sample(stationID string, value float64) *models.MetricSample {
	return &models.MetricSample{
		StationID:  stationID,
		MetricType: "cpu_usage",
		Value:      value,
		Timestamp:  time.Now(),
	}
}

func newTestEvaluator(publisher EventPublisher, diagnoser Diagnoser) (*Evaluator, *RuleStore) {
	store := NewRuleStore()
	store.Add(testRule("cpu-high", "cpu_usage"))
	return NewEvaluator(store, publisher, diagnoser, logging.FromCoreLogger(nil)), store
}

func TestEvaluate_TriggersOncePerConditionOnset(t *testing.T) {
	eval, _ := newTestEvaluator(nil, nil)
	ctx := context.Background()

	triggered := eval.Evaluate(ctx, sample("st-1", 95))
	require.Len(t, triggered, 1)
	assert.Equal(t, "cpu-high", triggered[0].ID)
	assert.True(t, eval.IsActive("st-1", "cpu-high"))

	// Still matching: no new signal
	assert.Empty(t, eval.Evaluate(ctx, sample("st-1", 97)))
	assert.True(t, eval.IsActive("st-1", "cpu-high"))
}

func TestEvaluate_ResolveThenRetrigger(t *testing.T) {
	eval, _ := newTestEvaluator(nil, nil)
	ctx := context.Background()

	require.Len(t, eval.Evaluate(ctx, sample("st-1", 95)), 1)

	// Condition clears: active record removed, no trigger
	assert.Empty(t, eval.Evaluate(ctx, sample("st-1", 50)))
	assert.False(t, eval.IsActive("st-1", "cpu-high"))

	// Condition returns: fires again
	assert.Len(t, eval.Evaluate(ctx, sample("st-1", 99)), 1)
}

// Trigger and resolve signals strictly alternate for one (station, rule)
// pair, starting with a trigger, across any sample sequence.
func TestEvaluate_TriggerResolveStrictlyAlternate(t *testing.T) {
	eval, _ := newTestEvaluator(nil, nil)
	ctx := context.Background()

	values := []float64{95, 99, 91, 20, 30, 96, 50, 97, 98, 10}
	var signals []string
	for _, v := range values {
		wasActive := eval.IsActive("st-1", "cpu-high")
		eval.Evaluate(ctx, sample("st-1", v))
		isActive := eval.IsActive("st-1", "cpu-high")
		switch {
		case !wasActive && isActive:
			signals = append(signals, "triggered")
		case wasActive && !isActive:
			signals = append(signals, "resolved")
		}
	}

	require.NotEmpty(t, signals)
	assert.Equal(t, "triggered", signals[0])
	for i := 1; i < len(signals); i++ {
		assert.NotEqual(t, signals[i-1], signals[i], "signal %d repeats its predecessor", i)
	}
}

func TestEvaluate_StationsAreIndependent(t *testing.T) {
	eval, _ := newTestEvaluator(nil, nil)
	ctx := context.Background()

	require.Len(t, eval.Evaluate(ctx, sample("st-1", 95)), 1)
	require.Len(t, eval.Evaluate(ctx, sample("st-2", 95)), 1)

	eval.Evaluate(ctx, sample("st-1", 10))
	assert.False(t, eval.IsActive("st-1", "cpu-high"))
	assert.True(t, eval.IsActive("st-2", "cpu-high"))
	assert.Len(t, eval.ActiveAlerts(), 1)
}

func TestEvaluate_DisabledRulesIgnored(t *testing.T) {
	eval, store := newTestEvaluator(nil, nil)
	store.Disable("cpu-high")

	assert.Empty(t, eval.Evaluate(context.Background(), sample("st-1", 99)))
	assert.False(t, eval.IsActive("st-1", "cpu-high"))
}

func TestEvaluate_PublishFailureDoesNotSuppressTrigger(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("broker unavailable")}
	eval, _ := newTestEvaluator(publisher, nil)

	triggered := eval.Evaluate(context.Background(), sample("st-1", 95))
	require.Len(t, triggered, 1)
	assert.True(t, eval.IsActive("st-1", "cpu-high"))
	assert.Len(t, publisher.events, 1)
}

func TestEvaluate_DiagnoserCalledOnlyOnNewTriggers(t *testing.T) {
	diagnoser := &capturingDiagnoser{}
	eval, _ := newTestEvaluator(nil, diagnoser)
	ctx := context.Background()

	eval.Evaluate(ctx, sample("st-1", 95))
	eval.Evaluate(ctx, sample("st-1", 97)) // still firing
	eval.Evaluate(ctx, sample("st-1", 10)) // resolves
	eval.Evaluate(ctx, sample("st-1", 96)) // re-triggers

	require.Len(t, diagnoser.calls, 2)
	assert.Equal(t, "st-1:cpu-high", diagnoser.calls[0])
	assert.Equal(t, "st-1:cpu-high", diagnoser.calls[1])
}

func TestEvaluate_PublishPayloadCarriesRuleAndSample(t *testing.T) {
	publisher := &capturingPublisher{}
	eval, _ := newTestEvaluator(publisher, nil)

	eval.Evaluate(context.Background(), &models.MetricSample{
		StationID:   "st-1",
		StationName: "Station One",
		MetricType:  "cpu_usage",
		Value:       95,
		Timestamp:   time.Now(),
	})

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, "cpu-high", event.RuleID)
	assert.Equal(t, "Station One", event.StationName)
	assert.Equal(t, 95.0, event.MetricValue)
	assert.Equal(t, 90.0, event.Threshold)
}

func TestRuleMatches_Operators(t *testing.T) {
	tests := []struct {
		operator  string
		value     float64
		want      bool
		wantKnown bool
	}{
		{models.OpGreaterThan, 91, true, true},
		{models.OpGreaterThan, 90, false, true},
		{models.OpGreaterOrEqual, 90, true, true},
		{models.OpGreaterOrEqual, 89, false, true},
		{models.OpLessThan, 89, true, true},
		{models.OpLessThan, 90, false, true},
		{models.OpLessOrEqual, 90, true, true},
		{models.OpLessOrEqual, 91, false, true},
		{models.OpEqual, 90, true, true},
		{models.OpEqual, 90.5, false, true},
		{"~=", 90, false, false}, // unknown operator never matches
	}

	for _, tt := range tests {
		rule := models.AlertRule{Operator: tt.operator, Threshold: 90}
		matched, known := ruleMatches(rule, tt.value)
		assert.Equal(t, tt.want, matched,
			"operator %q with value %v", tt.operator, tt.value)
		assert.Equal(t, tt.wantKnown, known, "operator %q", tt.operator)
	}
}
