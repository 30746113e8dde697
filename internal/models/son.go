package models

import "time"

// SON function types (standard self-optimizing-network function set).
const (
	SONFunctionMLB  = "MLB"  // mobility load balancing
	SONFunctionMRO  = "MRO"  // mobility robustness optimization
	SONFunctionCCO  = "CCO"  // coverage and capacity optimization
	SONFunctionES   = "ES"   // energy saving
	SONFunctionANR  = "ANR"  // automatic neighbor relations
	SONFunctionRAO  = "RAO"  // random access optimization
	SONFunctionICIC = "ICIC" // inter-cell interference coordination
)

// SON recommendation statuses.
const (
	SONPending    = "PENDING"
	SONApproved   = "APPROVED"
	SONRejected   = "REJECTED"
	SONExecuting  = "EXECUTING"
	SONExecuted   = "EXECUTED"
	SONFailed     = "FAILED"
	SONRolledBack = "ROLLED_BACK"
	SONExpired    = "EXPIRED"
)

// SONRecommendation is a proposed network parameter change with its own
// approval/execution/rollback lifecycle. Created by the AI collaborator,
// never by metric ingestion directly.
type SONRecommendation struct {
	ID                  string    `json:"id"`
	StationID           string    `json:"station_id"`
	FunctionType        string    `json:"function_type"`
	ActionType          string    `json:"action_type"`
	ActionValue         string    `json:"action_value"`
	Description         string    `json:"description"`
	ExpectedImprovement string    `json:"expected_improvement"`
	Confidence          float64   `json:"confidence"`
	AutoExecutable      bool      `json:"auto_executable"`
	ApprovalRequired    bool      `json:"approval_required"`
	RollbackAction      string    `json:"rollback_action,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`

	// Audit trail
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	RejectedBy       string     `json:"rejected_by,omitempty"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	ExecutedAt       *time.Time `json:"executed_at,omitempty"`
	ExecutionSuccess *bool      `json:"execution_success,omitempty"`
	ExecutionResult  string     `json:"execution_result,omitempty"`
	RolledBackBy     string     `json:"rolled_back_by,omitempty"`
	RolledBackAt     *time.Time `json:"rolled_back_at,omitempty"`
	RollbackReason   string     `json:"rollback_reason,omitempty"`
}

// SONStatistics is the read-only lifecycle aggregate, globally and per
// station.
type SONStatistics struct {
	CountsByStatus  map[string]int            `json:"counts_by_status"`
	CountsByStation map[string]map[string]int `json:"counts_by_station"`
	Total           int                       `json:"total"`
	SuccessRate     float64                   `json:"success_rate"` // percent
	GeneratedAt     time.Time                 `json:"generated_at"`
}
