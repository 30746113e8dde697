// ================================
// internal/metrics/metrics.go - Self-monitoring for MIRADOR-REMEDIATE
// ================================

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alert pipeline metrics
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_alerts_triggered_total",
			Help: "Total number of alerts newly triggered by rule evaluation",
		},
		[]string{"rule", "severity"},
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_alerts_resolved_total",
			Help: "Total number of active alerts resolved by rule evaluation",
		},
		[]string{"rule", "severity"},
	)

	AlertPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirador_remediate_alert_publish_failures_total",
			Help: "Total number of best-effort alert publishes that failed",
		},
	)

	// Diagnosis pipeline metrics
	DiagnosisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_diagnosis_requests_total",
			Help: "Total number of diagnosis requests issued to the AI engine",
		},
		[]string{"status"}, // completed, failed, skipped
	)

	DiagnosisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirador_remediate_diagnosis_duration_seconds",
			Help:    "AI diagnosis request duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
	)

	SolutionsAutoApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirador_remediate_solutions_auto_applied_total",
			Help: "Total number of solutions applied without human approval",
		},
	)

	FeedbackSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_feedback_submitted_total",
			Help: "Total number of solution feedback submissions",
		},
		[]string{"source", "effective"}, // operator/system, true/false
	)

	// Learning store metrics
	LearningUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_learning_updates_total",
			Help: "Total number of learned-pattern updates",
		},
		[]string{"result"}, // applied, retried, dropped
	)

	// SON lifecycle metrics
	SONTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_son_transitions_total",
			Help: "Total number of SON recommendation state transitions",
		},
		[]string{"to_status"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirador_remediate_sweep_runs_total",
			Help: "Total number of background sweep executions",
		},
		[]string{"sweep", "result"}, // expiry/auto_execute, completed/skipped
	)
)
