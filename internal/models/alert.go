package models

import "time"

// Comparison operators supported by alert rules.
const (
	OpGreaterThan    = ">"
	OpGreaterOrEqual = ">="
	OpLessThan       = "<"
	OpLessOrEqual    = "<="
	OpEqual          = "=="
)

// Alert severities.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
	SeverityInfo     = "INFO"
)

// AlertRule is a threshold condition on a metric type. Rules are immutable
// value objects: mutations go through the With* copies so concurrent readers
// never observe a half-updated rule.
type AlertRule struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	MetricType string  `json:"metric_type"`
	Operator   string  `json:"operator"` // >, >=, <, <=, ==
	Threshold  float64 `json:"threshold"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	Enabled    bool    `json:"enabled"`
}

// WithThreshold returns a copy of the rule with a replaced threshold.
func (r AlertRule) WithThreshold(threshold float64) AlertRule {
	r.Threshold = threshold
	return r
}

// WithEnabled returns a copy of the rule with the enabled flag replaced.
func (r AlertRule) WithEnabled(enabled bool) AlertRule {
	r.Enabled = enabled
	return r
}

// ActiveAlert is the dedup record preventing re-firing of an already
// triggered rule for a station. At most one exists per (station, rule) pair.
type ActiveAlert struct {
	StationID   string    `json:"station_id"`
	RuleID      string    `json:"rule_id"`
	TriggeredAt time.Time `json:"triggered_at"`
	LastValue   float64   `json:"last_value"`
}

// AlertEvent is the best-effort publish payload sent to the messaging
// collaborator when a rule newly triggers.
type AlertEvent struct {
	RuleID      string  `json:"rule_id"`
	RuleName    string  `json:"rule_name"`
	StationID   string  `json:"station_id"`
	StationName string  `json:"station_name"`
	MetricType  string  `json:"metric_type"`
	MetricValue float64 `json:"metric_value"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
}
