// Package son manages the self-optimizing-network recommendation lifecycle:
// propose, approve or reject, execute, roll back, expire.
package son

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/metrics"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/internal/repo"
)

// ErrValidation rejects malformed recommendations before any state mutation.
var ErrValidation = errors.New("validation failed")

// validFunctionTypes gates creation; unknown function types are rejected.
var validFunctionTypes = map[string]bool{
	models.SONFunctionMLB:  true,
	models.SONFunctionMRO:  true,
	models.SONFunctionCCO:  true,
	models.SONFunctionES:   true,
	models.SONFunctionANR:  true,
	models.SONFunctionRAO:  true,
	models.SONFunctionICIC: true,
}

// Workflow drives SONRecommendation state transitions. Every transition is
// guarded by the repository's conditional update: a call from a wrong source
// state reports false rather than erroring.
type Workflow struct {
	recs          repo.RecommendationRepository
	logger        logging.Logger
	defaultExpiry time.Duration
}

func NewWorkflow(recs repo.RecommendationRepository, cfg config.SONConfig, log logging.Logger) *Workflow {
	expiry := cfg.DefaultExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Workflow{recs: recs, logger: log, defaultExpiry: expiry}
}

// Create stores a new recommendation in PENDING state. An unset expiry
// defaults to now plus the configured window.
func (w *Workflow) Create(ctx context.Context, rec *models.SONRecommendation) (*models.SONRecommendation, error) {
	if rec.StationID == "" || rec.ActionType == "" {
		return nil, ErrValidation
	}
	if !validFunctionTypes[rec.FunctionType] {
		return nil, ErrValidation
	}

	now := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Status = models.SONPending
	rec.CreatedAt = now
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = now.Add(w.defaultExpiry)
	}

	if err := w.recs.Save(ctx, rec); err != nil {
		return nil, err
	}
	metrics.SONTransitions.WithLabelValues(models.SONPending).Inc()
	w.logger.Info("SON recommendation created",
		"id", rec.ID, "station_id", rec.StationID,
		"function", rec.FunctionType, "action", rec.ActionType,
		"auto_executable", rec.AutoExecutable)
	return rec, nil
}

// Approve moves PENDING to APPROVED and records the actor. Reports false
// when the recommendation is missing or not PENDING.
func (w *Workflow) Approve(ctx context.Context, id, actor string) (bool, error) {
	if actor == "" {
		return false, ErrValidation
	}
	now := time.Now()
	ok, err := w.recs.UpdateIfStatus(ctx, id, []string{models.SONPending}, func(r *models.SONRecommendation) {
		r.Status = models.SONApproved
		r.ApprovedBy = actor
		r.ApprovedAt = &now
	})
	if ok {
		metrics.SONTransitions.WithLabelValues(models.SONApproved).Inc()
		w.logger.Info("SON recommendation approved", "id", id, "actor", actor)
	}
	return ok, err
}

// Reject moves PENDING to REJECTED with the actor and reason.
func (w *Workflow) Reject(ctx context.Context, id, actor, reason string) (bool, error) {
	if actor == "" {
		return false, ErrValidation
	}
	now := time.Now()
	ok, err := w.recs.UpdateIfStatus(ctx, id, []string{models.SONPending}, func(r *models.SONRecommendation) {
		r.Status = models.SONRejected
		r.RejectedBy = actor
		r.RejectedAt = &now
		r.RejectionReason = reason
	})
	if ok {
		metrics.SONTransitions.WithLabelValues(models.SONRejected).Inc()
		w.logger.Info("SON recommendation rejected", "id", id, "actor", actor, "reason", reason)
	}
	return ok, err
}

// MarkExecuting moves APPROVED to EXECUTING. The actual execution call is
// delegated to an external collaborator; its result arrives later through
// RecordExecutionResult.
func (w *Workflow) MarkExecuting(ctx context.Context, id string) (bool, error) {
	ok, err := w.recs.UpdateIfStatus(ctx, id, []string{models.SONApproved}, func(r *models.SONRecommendation) {
		r.Status = models.SONExecuting
	})
	if ok {
		metrics.SONTransitions.WithLabelValues(models.SONExecuting).Inc()
		w.logger.Info("SON recommendation executing", "id", id)
	}
	return ok, err
}

// RecordExecutionResult moves EXECUTING to EXECUTED or FAILED with the
// collaborator's result text.
func (w *Workflow) RecordExecutionResult(ctx context.Context, id string, success bool, resultText string) (bool, error) {
	now := time.Now()
	target := models.SONExecuted
	if !success {
		target = models.SONFailed
	}
	ok, err := w.recs.UpdateIfStatus(ctx, id, []string{models.SONExecuting}, func(r *models.SONRecommendation) {
		r.Status = target
		r.ExecutedAt = &now
		r.ExecutionSuccess = &success
		r.ExecutionResult = resultText
	})
	if ok {
		metrics.SONTransitions.WithLabelValues(target).Inc()
		w.logger.Info("SON execution result recorded", "id", id, "success", success)
	}
	return ok, err
}

// Rollback moves EXECUTED to ROLLED_BACK, but only when a rollback action
// was captured at creation time. An EXECUTED recommendation without one is
// not actionable and the call is a no-op.
func (w *Workflow) Rollback(ctx context.Context, id, actor, reason string) (bool, error) {
	if actor == "" {
		return false, ErrValidation
	}
	existing, err := w.recs.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil || existing.RollbackAction == "" {
		return false, nil
	}

	now := time.Now()
	ok, err := w.recs.UpdateIfStatus(ctx, id, []string{models.SONExecuted}, func(r *models.SONRecommendation) {
		r.Status = models.SONRolledBack
		r.RolledBackBy = actor
		r.RolledBackAt = &now
		r.RollbackReason = reason
	})
	if ok {
		metrics.SONTransitions.WithLabelValues(models.SONRolledBack).Inc()
		w.logger.Info("SON recommendation rolled back", "id", id, "actor", actor, "reason", reason)
	}
	return ok, err
}

// Get returns a recommendation by id, nil when unknown.
func (w *Workflow) Get(ctx context.Context, id string) (*models.SONRecommendation, error) {
	return w.recs.FindByID(ctx, id)
}

// ByStation lists recommendations for a station.
func (w *Workflow) ByStation(ctx context.Context, stationID string) ([]*models.SONRecommendation, error) {
	return w.recs.FindByStation(ctx, stationID)
}

// ByStatus lists recommendations in a given status.
func (w *Workflow) ByStatus(ctx context.Context, status string) ([]*models.SONRecommendation, error) {
	return w.recs.FindByStatus(ctx, status)
}

// ExpirePending transitions every PENDING recommendation past its expiry to
// EXPIRED and returns the number moved. An expired recommendation can never
// be approved afterward; the same guard that blocks double approval blocks
// post-expiry approval.
func (w *Workflow) ExpirePending(ctx context.Context, asOf time.Time) (int, error) {
	stale, err := w.recs.FindExpired(ctx, models.SONPending, asOf)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, rec := range stale {
		ok, err := w.recs.UpdateIfStatus(ctx, rec.ID, []string{models.SONPending}, func(r *models.SONRecommendation) {
			r.Status = models.SONExpired
		})
		if err != nil {
			w.logger.Error("failed to expire SON recommendation", "id", rec.ID, "error", err)
			continue
		}
		if ok {
			expired++
			metrics.SONTransitions.WithLabelValues(models.SONExpired).Inc()
		}
	}
	return expired, nil
}

// StartAutoExecutable moves every APPROVED recommendation flagged
// auto-executable to EXECUTING and returns the number started.
func (w *Workflow) StartAutoExecutable(ctx context.Context) (int, error) {
	approved, err := w.recs.FindByStatus(ctx, models.SONApproved)
	if err != nil {
		return 0, err
	}
	started := 0
	for _, rec := range approved {
		if !rec.AutoExecutable {
			continue
		}
		ok, err := w.MarkExecuting(ctx, rec.ID)
		if err != nil {
			w.logger.Error("failed to start auto-executable SON recommendation", "id", rec.ID, "error", err)
			continue
		}
		if ok {
			started++
		}
	}
	return started, nil
}

// Statistics aggregates lifecycle counts globally and per station. Success
// rate is executed over all recommendations that reached a terminal state.
func (w *Workflow) Statistics(ctx context.Context) (*models.SONStatistics, error) {
	recs, err := w.recs.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.SONStatistics{
		CountsByStatus:  make(map[string]int),
		CountsByStation: make(map[string]map[string]int),
		Total:           len(recs),
		GeneratedAt:     time.Now(),
	}

	terminal := 0
	executed := 0
	for _, rec := range recs {
		stats.CountsByStatus[rec.Status]++
		byStation := stats.CountsByStation[rec.StationID]
		if byStation == nil {
			byStation = make(map[string]int)
			stats.CountsByStation[rec.StationID] = byStation
		}
		byStation[rec.Status]++

		switch rec.Status {
		case models.SONExecuted, models.SONRolledBack:
			terminal++
			executed++
		case models.SONFailed, models.SONRejected, models.SONExpired:
			terminal++
		}
	}
	if terminal > 0 {
		stats.SuccessRate = float64(executed) / float64(terminal) * 100
	}
	return stats, nil
}
