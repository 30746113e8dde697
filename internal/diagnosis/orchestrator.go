// Package diagnosis converts triggered alerts into diagnostic sessions,
// requests AI diagnoses asynchronously, and drives session state.
package diagnosis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/mirador-remediate/internal/alerts"
	"github.com/platformbuilds/mirador-remediate/internal/clients"
	"github.com/platformbuilds/mirador-remediate/internal/learning"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/metrics"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/internal/repo"
)

// ErrValidation rejects malformed feedback before any state mutation.
var ErrValidation = errors.New("validation failed")

// AlertContext carries the triggering rule and sample into session creation.
type AlertContext struct {
	Rule   models.AlertRule
	Sample models.MetricSample
}

// Orchestrator owns the diagnostic session lifecycle. Diagnosis requests run
// on background goroutines tracked by a wait group; Close cancels them so no
// task outlives the orchestrator.
type Orchestrator struct {
	sessions repo.SessionRepository
	engine   clients.AIEngine
	learning *learning.Store
	policy   Policy
	logger   logging.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	pending chan func()
}

func NewOrchestrator(
	sessions repo.SessionRepository,
	engine clients.AIEngine,
	learningStore *learning.Store,
	policy Policy,
	log logging.Logger,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		sessions: sessions,
		engine:   engine,
		learning: learningStore,
		policy:   policy,
		logger:   log,
		baseCtx:  ctx,
		cancel:   cancel,
		pending:  make(chan func(), 256),
		done:     make(chan struct{}),
	}
	go o.worker()
	return o
}

// worker drains the diagnosis task queue. A single worker is enough: the
// per-request latency lives inside the AI call, which carries its own
// timeout, and ordering per problem id falls out for free.
func (o *Orchestrator) worker() {
	defer close(o.done)
	for {
		select {
		case <-o.baseCtx.Done():
			return
		case task := <-o.pending:
			task()
		}
	}
}

// Close cancels pending diagnosis tasks and waits for the worker to drain.
func (o *Orchestrator) Close() {
	o.cancel()
	<-o.done
}

// HandleTriggeredAlert opens or reuses the diagnostic session for the
// alert's problem id and schedules an asynchronous diagnosis request. It
// returns immediately; the eventual diagnosis is handled by a continuation
// on the worker goroutine.
func (o *Orchestrator) HandleTriggeredAlert(ctx context.Context, rule models.AlertRule, sample *models.MetricSample) {
	problemID := alerts.ProblemID(sample.StationID, rule.ID)

	session, reused, err := o.CreateOrReuseSession(ctx, AlertContext{Rule: rule, Sample: *sample}, problemID)
	if err != nil {
		o.logger.Error("failed to open diagnostic session", "problem_id", problemID, "error", err)
		return
	}

	// An alert still being processed keeps its session past DETECTED; do
	// not issue a duplicate AI call for it.
	if reused && session.Status != models.SessionDetected {
		metrics.DiagnosisRequests.WithLabelValues("skipped").Inc()
		o.logger.Debug("diagnosis already in flight, skipping",
			"problem_id", problemID, "status", session.Status)
		return
	}

	sessionID := session.ID
	select {
	case o.pending <- func() { o.requestDiagnosis(sessionID) }:
	default:
		metrics.DiagnosisRequests.WithLabelValues("failed").Inc()
		o.logger.Warn("diagnosis queue full, dropping request", "problem_id", problemID)
	}
}

// CreateOrReuseSession looks up an existing session for problemID and
// creates one in DETECTED state when none exists. A session already in a
// terminal state belongs to a previous incident; the re-triggered alert
// gets a fresh session so it is diagnosed again. The metrics snapshot
// records the triggering metric and threshold.
func (o *Orchestrator) CreateOrReuseSession(ctx context.Context, alert AlertContext, problemID string) (*models.DiagnosticSession, bool, error) {
	existing, err := o.sessions.FindByProblemID(ctx, problemID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && !sessionTerminal(existing.Status) {
		return existing, true, nil
	}

	now := time.Now()
	session := &models.DiagnosticSession{
		ID:          uuid.New().String(),
		ProblemID:   problemID,
		StationID:   alert.Sample.StationID,
		Category:    alert.Rule.MetricType,
		Severity:    alert.Rule.Severity,
		ProblemCode: alert.Rule.ID,
		Message:     alert.Rule.Message,
		Metrics: map[string]float64{
			alert.Sample.MetricType: alert.Sample.Value,
			"threshold":             alert.Rule.Threshold,
		},
		Status:    models.SessionDetected,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.sessions.Save(ctx, session); err != nil {
		// A concurrent trigger won the insert; fall back to its session.
		if errors.Is(err, repo.ErrDuplicateSession) {
			winner, ferr := o.sessions.FindByProblemID(ctx, problemID)
			if ferr == nil && winner != nil {
				return winner, true, nil
			}
		}
		return nil, false, err
	}
	return session, false, nil
}

func sessionTerminal(status string) bool {
	return status == models.SessionResolved || status == models.SessionFailed
}

// requestDiagnosis calls the AI engine with the policy timeout and, on
// success, applies the learned confidence adjustment and the auto-apply
// decision. On timeout or error the session is left where it was; it never
// silently transitions to a false-positive resolved state.
func (o *Orchestrator) requestDiagnosis(sessionID string) {
	ctx, cancel := context.WithTimeout(o.baseCtx, o.policy.DiagnosisTimeout)
	defer cancel()

	session, err := o.sessions.FindByID(ctx, sessionID)
	if err != nil || session == nil {
		o.logger.Error("diagnosis task lost its session", "session_id", sessionID, "error", err)
		return
	}

	start := time.Now()
	resp, err := o.engine.Diagnose(ctx, &models.DiagnosisRequest{
		ProblemID:   session.ProblemID,
		StationID:   session.StationID,
		ProblemCode: session.ProblemCode,
		Category:    session.Category,
		Severity:    session.Severity,
		Message:     session.Message,
		Metrics:     session.Metrics,
	})
	metrics.DiagnosisDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DiagnosisRequests.WithLabelValues("failed").Inc()
		o.logger.Warn("diagnosis request failed",
			"session_id", session.ID, "problem_id", session.ProblemID, "error", err)
		return
	}

	if !resp.IsActionable {
		metrics.DiagnosisRequests.WithLabelValues("skipped").Inc()
		o.logger.Info("diagnosis not actionable",
			"session_id", session.ID, "problem_id", session.ProblemID)
		return
	}

	solution := &models.AISolution{
		Action:          resp.Action,
		Commands:        resp.Commands,
		ExpectedOutcome: resp.ExpectedOutcome,
		RiskLevel:       resp.RiskLevel,
		Confidence:      resp.Confidence,
		Reasoning:       resp.Reasoning,
	}

	// Close the feedback loop: a learned pattern with enough data
	// overwrites the engine's confidence before the auto-apply decision.
	adjusted, err := o.learning.AdjustConfidence(ctx, solution, session.ProblemCode)
	if err != nil {
		o.logger.Warn("confidence adjustment lookup failed",
			"problem_code", session.ProblemCode, "error", err)
	} else if adjusted {
		o.logger.Debug("confidence adjusted from learned pattern",
			"problem_code", session.ProblemCode, "confidence", solution.Confidence)
	}

	session.Solution = solution
	session.Status = models.SessionDiagnosed
	session.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Error("failed to persist diagnosed session", "session_id", session.ID, "error", err)
		return
	}
	metrics.DiagnosisRequests.WithLabelValues("completed").Inc()

	if ShouldAutoApply(solution.RiskLevel, solution.Confidence, o.policy) {
		o.autoApply(ctx, session)
	}
}

// autoApply marks the solution applied without human approval and
// optimistically records it as a success. The optimism is deliberate and
// observable: no real-world confirmation exists yet at this point.
func (o *Orchestrator) autoApply(ctx context.Context, session *models.DiagnosticSession) {
	now := time.Now()
	session.AutoApplied = true
	session.Status = models.SessionApplied
	session.UpdatedAt = now
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Error("failed to persist auto-applied session", "session_id", session.ID, "error", err)
		return
	}

	session.Feedback = &models.SolutionFeedback{
		WasEffective: true,
		Rating:       5,
		Notes:        "auto-applied by remediation policy",
		ConfirmedBy:  models.SystemIdentity,
		ConfirmedAt:  now,
	}
	session.Status = models.SessionResolved
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Error("failed to persist auto-applied session", "session_id", session.ID, "error", err)
		return
	}

	metrics.SolutionsAutoApplied.Inc()
	metrics.FeedbackSubmitted.WithLabelValues(models.SystemIdentity, "true").Inc()
	o.logger.Info("solution auto-applied",
		"session_id", session.ID,
		"problem_code", session.ProblemCode,
		"action", session.Solution.Action,
		"confidence", session.Solution.Confidence,
		"risk", session.Solution.RiskLevel)

	o.learning.RecordOutcome(ctx, session.ProblemCode, session.Category, session.Solution, true, 5)
}

// MarkApplied records that a human applied a diagnosed solution and moves
// the session to PENDING_CONFIRMATION. Only valid from DIAGNOSED; any other
// state reports false.
func (o *Orchestrator) MarkApplied(ctx context.Context, sessionID string) (bool, error) {
	session, err := o.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session == nil || session.Status != models.SessionDiagnosed {
		return false, nil
	}
	session.Status = models.SessionPendingConfirmation
	session.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, session); err != nil {
		return false, err
	}
	return true, nil
}

// FeedbackRequest is the operator/system feedback payload.
type FeedbackRequest struct {
	WasEffective  bool
	Rating        int
	Notes         string
	ActualOutcome string
	ConfirmedBy   string
}

// SubmitFeedback attaches feedback to a session, transitions it to RESOLVED
// or FAILED, and forwards the outcome to the learning store. Returns nil
// (not an error) when the session id is unknown.
func (o *Orchestrator) SubmitFeedback(ctx context.Context, sessionID string, req FeedbackRequest) (*models.DiagnosticSession, error) {
	if req.ConfirmedBy == "" {
		return nil, ErrValidation
	}
	if req.Rating != 0 && (req.Rating < 1 || req.Rating > 5) {
		return nil, ErrValidation
	}

	session, err := o.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	now := time.Now()
	session.Feedback = &models.SolutionFeedback{
		WasEffective:  req.WasEffective,
		Rating:        req.Rating,
		Notes:         req.Notes,
		ActualOutcome: req.ActualOutcome,
		ConfirmedBy:   req.ConfirmedBy,
		ConfirmedAt:   now,
	}
	if req.WasEffective {
		session.Status = models.SessionResolved
	} else {
		session.Status = models.SessionFailed
	}
	session.UpdatedAt = now

	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	source := "operator"
	if req.ConfirmedBy == models.SystemIdentity {
		source = models.SystemIdentity
	}
	effective := "false"
	if req.WasEffective {
		effective = "true"
	}
	metrics.FeedbackSubmitted.WithLabelValues(source, effective).Inc()

	// Learning updates must never fail the feedback transaction; the store
	// handles its own retries and drops.
	o.learning.RecordOutcome(ctx, session.ProblemCode, session.Category, session.Solution, req.WasEffective, req.Rating)

	return session, nil
}

// HandleCommandResult is the alternate feedback channel: the downstream
// execution collaborator's result is translated into a system-identity
// feedback submission, rating derived purely from success.
func (o *Orchestrator) HandleCommandResult(ctx context.Context, result *models.CommandResult) (*models.DiagnosticSession, error) {
	rating := 1
	if result.Success {
		rating = 5
	}
	return o.SubmitFeedback(ctx, result.DiagnosticSessionID, FeedbackRequest{
		WasEffective:  result.Success,
		Rating:        rating,
		ActualOutcome: "command " + result.CommandID + " completed",
		ConfirmedBy:   models.SystemIdentity,
	})
}

// Session returns a session by id, nil when unknown.
func (o *Orchestrator) Session(ctx context.Context, id string) (*models.DiagnosticSession, error) {
	return o.sessions.FindByID(ctx, id)
}

// SessionsByStation lists sessions for a station.
func (o *Orchestrator) SessionsByStation(ctx context.Context, stationID string) ([]*models.DiagnosticSession, error) {
	return o.sessions.FindByStation(ctx, stationID)
}

// SessionsByStatus lists sessions in a given status.
func (o *Orchestrator) SessionsByStatus(ctx context.Context, status string) ([]*models.DiagnosticSession, error) {
	return o.sessions.FindByStatus(ctx, status)
}
