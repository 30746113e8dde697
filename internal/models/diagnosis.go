package models

import "time"

// Diagnostic session statuses.
const (
	SessionDetected            = "DETECTED"
	SessionDiagnosed           = "DIAGNOSED"
	SessionApplied             = "APPLIED"
	SessionPendingConfirmation = "PENDING_CONFIRMATION"
	SessionResolved            = "RESOLVED"
	SessionFailed              = "FAILED"
)

// Solution risk levels.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// SystemIdentity is the sentinel confirmer for system-generated feedback
// (auto-applied solutions and command-result callbacks).
const SystemIdentity = "system"

// DiagnosticSession is the per-incident record tracking AI diagnosis and
// operator/system feedback. Solution and Feedback are nil until the
// corresponding stage has happened; a nil Solution means "no diagnosis yet",
// never "empty diagnosis".
type DiagnosticSession struct {
	ID          string             `json:"id"`
	ProblemID   string             `json:"problem_id"`
	StationID   string             `json:"station_id"`
	Category    string             `json:"category"`
	Severity    string             `json:"severity"`
	ProblemCode string             `json:"problem_code"`
	Message     string             `json:"message"`
	Metrics     map[string]float64 `json:"metrics"` // snapshot at trigger time
	Solution    *AISolution        `json:"solution,omitempty"`
	Feedback    *SolutionFeedback  `json:"feedback,omitempty"`
	AutoApplied bool               `json:"auto_applied"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// AISolution is the diagnosis engine's proposed remediation. Confidence may
// be overwritten in place by a learned adjustment before the auto-apply
// decision is made.
type AISolution struct {
	Action          string   `json:"action"`
	Commands        []string `json:"commands"`
	ExpectedOutcome string   `json:"expected_outcome"`
	RiskLevel       string   `json:"risk_level"`
	Confidence      float64  `json:"confidence"` // [0,1]
	Reasoning       string   `json:"reasoning"`
}

// SolutionFeedback is attached to a session exactly once, at resolution or
// failure time.
type SolutionFeedback struct {
	WasEffective  bool      `json:"was_effective"`
	Rating        int       `json:"rating,omitempty"` // 1..5, 0 = unrated
	Notes         string    `json:"notes,omitempty"`
	ActualOutcome string    `json:"actual_outcome,omitempty"`
	ConfirmedBy   string    `json:"confirmed_by"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// DiagnosisRequest is the payload sent to the AI diagnosis engine.
type DiagnosisRequest struct {
	ProblemID   string             `json:"problem_id"`
	StationID   string             `json:"station_id"`
	ProblemCode string             `json:"problem_code"`
	Category    string             `json:"category"`
	Severity    string             `json:"severity"`
	Message     string             `json:"message"`
	Metrics     map[string]float64 `json:"metrics"`
}

// DiagnosisResponse is the AI engine's asynchronous answer.
type DiagnosisResponse struct {
	Action          string   `json:"action"`
	Commands        []string `json:"commands"`
	ExpectedOutcome string   `json:"expected_outcome"`
	RiskLevel       string   `json:"risk_level"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	IsActionable    bool     `json:"is_actionable"`
}

// CommandResult is the downstream execution collaborator's webhook payload,
// mapped to a system-identity feedback submission.
type CommandResult struct {
	CommandID           string `json:"command_id"`
	DiagnosticSessionID string `json:"diagnostic_session_id"`
	ProblemCode         string `json:"problem_code"`
	Success             bool   `json:"success"`
	ReturnCode          int    `json:"return_code"`
}
