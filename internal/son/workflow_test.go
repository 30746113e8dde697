package son

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/internal/repo"
)

func newTestWorkflow() (*Workflow, *repo.MemoryRecommendationRepository) {
	recs := repo.NewMemoryRecommendationRepository()
	w := NewWorkflow(recs, config.SONConfig{DefaultExpiry: 24 * time.Hour}, logging.FromCoreLogger(nil))
	return w, recs
}

func newRecommendation() *models.SONRecommendation {
	return &models.SONRecommendation{
		StationID:           "st-1",
		FunctionType:        models.SONFunctionMLB,
		ActionType:          "adjust_handover_margin",
		ActionValue:         "3dB",
		Description:         "shift load to neighbor cell",
		ExpectedImprovement: "10% load reduction",
		Confidence:          0.82,
		RollbackAction:      "restore_handover_margin",
	}
}

func mustCreate(t *testing.T, w *Workflow) *models.SONRecommendation {
	t.Helper()
	rec, err := w.Create(context.Background(), newRecommendation())
	require.NoError(t, err)
	return rec
}

func TestCreate_DefaultsToPendingWith24hExpiry(t *testing.T) {
	w, _ := newTestWorkflow()

	before := time.Now()
	rec := mustCreate(t, w)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.SONPending, rec.Status)
	assert.WithinDuration(t, before.Add(24*time.Hour), rec.ExpiresAt, time.Minute)
}

func TestCreate_KeepsExplicitExpiry(t *testing.T) {
	w, _ := newTestWorkflow()

	expiry := time.Now().Add(time.Hour)
	rec := newRecommendation()
	rec.ExpiresAt = expiry

	created, err := w.Create(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, expiry, created.ExpiresAt)
}

func TestCreate_RejectsUnknownFunctionType(t *testing.T) {
	w, _ := newTestWorkflow()

	rec := newRecommendation()
	rec.FunctionType = "TURBO"

	_, err := w.Create(context.Background(), rec)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApprove_OnlyFromPending(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()
	rec := mustCreate(t, w)

	ok, err := w.Approve(ctx, rec.ID, "operator-7")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := w.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONApproved, stored.Status)
	assert.Equal(t, "operator-7", stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)

	// Double approval is a no-op
	ok, err = w.Approve(ctx, rec.ID, "operator-8")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown id too
	ok, err = w.Approve(ctx, "unknown", "operator-7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReject_RecordsActorAndReason(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()
	rec := mustCreate(t, w)

	ok, err := w.Reject(ctx, rec.ID, "operator-7", "conflicts with maintenance window")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := w.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONRejected, stored.Status)
	assert.Equal(t, "conflicts with maintenance window", stored.RejectionReason)

	// Rejected recommendations cannot be approved
	ok, err = w.Approve(ctx, rec.ID, "operator-8")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecutionLifecycle(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()
	rec := mustCreate(t, w)

	// EXECUTING requires APPROVED
	ok, err := w.MarkExecuting(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.Approve(ctx, rec.ID, "operator-7")
	require.NoError(t, err)

	ok, err = w.MarkExecuting(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Result callback only applies while EXECUTING
	ok, err = w.RecordExecutionResult(ctx, rec.ID, true, "handover margin set")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := w.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONExecuted, stored.Status)
	require.NotNil(t, stored.ExecutionSuccess)
	assert.True(t, *stored.ExecutionSuccess)
	require.NotNil(t, stored.ExecutedAt)

	// A second result is a no-op
	ok, err = w.RecordExecutionResult(ctx, rec.ID, false, "late duplicate")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordExecutionResult_FailureMovesToFailed(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()
	rec := mustCreate(t, w)

	_, err := w.Approve(ctx, rec.ID, "operator-7")
	require.NoError(t, err)
	_, err = w.MarkExecuting(ctx, rec.ID)
	require.NoError(t, err)

	ok, err := w.RecordExecutionResult(ctx, rec.ID, false, "parameter write rejected")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := w.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONFailed, stored.Status)
}

func executedRecommendation(t *testing.T, w *Workflow, rollbackAction string) *models.SONRecommendation {
	t.Helper()
	ctx := context.Background()
	rec := newRecommendation()
	rec.RollbackAction = rollbackAction
	created, err := w.Create(ctx, rec)
	require.NoError(t, err)
	_, err = w.Approve(ctx, created.ID, "operator-7")
	require.NoError(t, err)
	_, err = w.MarkExecuting(ctx, created.ID)
	require.NoError(t, err)
	_, err = w.RecordExecutionResult(ctx, created.ID, true, "done")
	require.NoError(t, err)
	return created
}

func TestRollback_RequiresExecutedAndRollbackAction(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()

	withAction := executedRecommendation(t, w, "restore_handover_margin")
	ok, err := w.Rollback(ctx, withAction.ID, "operator-7", "regression observed")
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := w.Get(ctx, withAction.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONRolledBack, stored.Status)
	assert.Equal(t, "regression observed", stored.RollbackReason)

	// No rollback action captured: not actionable
	withoutAction := executedRecommendation(t, w, "")
	ok, err = w.Rollback(ctx, withoutAction.ID, "operator-7", "regression observed")
	require.NoError(t, err)
	assert.False(t, ok)

	// PENDING recommendations are not rollback-eligible
	pending := mustCreate(t, w)
	ok, err = w.Rollback(ctx, pending.ID, "operator-7", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpirePending_ExpiresAndBlocksLaterApproval(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()

	rec := mustCreate(t, w)

	// Before the expiry moment: nothing to do
	expired, err := w.ExpirePending(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)

	// Once 24 hours have elapsed, the sweep expires it
	expired, err = w.ExpirePending(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := w.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONExpired, stored.Status)

	// An expired recommendation can never be approved
	ok, err := w.Approve(ctx, rec.ID, "operator-7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpirePending_LeavesApprovedAlone(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()

	rec := mustCreate(t, w)
	_, err := w.Approve(ctx, rec.ID, "operator-7")
	require.NoError(t, err)

	expired, err := w.ExpirePending(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, expired)

	stored, err := w.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONApproved, stored.Status)
}

func TestStartAutoExecutable_OnlyApprovedAndFlagged(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()

	auto := newRecommendation()
	auto.AutoExecutable = true
	autoCreated, err := w.Create(ctx, auto)
	require.NoError(t, err)
	_, err = w.Approve(ctx, autoCreated.ID, "operator-7")
	require.NoError(t, err)

	manual := mustCreate(t, w)
	_, err = w.Approve(ctx, manual.ID, "operator-7")
	require.NoError(t, err)

	pendingAuto := newRecommendation()
	pendingAuto.AutoExecutable = true
	_, err = w.Create(ctx, pendingAuto)
	require.NoError(t, err)

	started, err := w.StartAutoExecutable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, started)

	stored, err := w.Get(ctx, autoCreated.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONExecuting, stored.Status)

	storedManual, err := w.Get(ctx, manual.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SONApproved, storedManual.Status)
}

func TestStatistics_CountsAndSuccessRate(t *testing.T) {
	w, _ := newTestWorkflow()
	ctx := context.Background()

	executedRecommendation(t, w, "restore")

	failing := mustCreate(t, w)
	_, err := w.Approve(ctx, failing.ID, "operator-7")
	require.NoError(t, err)
	_, err = w.MarkExecuting(ctx, failing.ID)
	require.NoError(t, err)
	_, err = w.RecordExecutionResult(ctx, failing.ID, false, "rejected")
	require.NoError(t, err)

	mustCreate(t, w) // still pending

	stats, err := w.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.CountsByStatus[models.SONExecuted])
	assert.Equal(t, 1, stats.CountsByStatus[models.SONFailed])
	assert.Equal(t, 1, stats.CountsByStatus[models.SONPending])
	assert.Equal(t, 3, len(stats.CountsByStation["st-1"]))
	assert.Equal(t, 50.0, stats.SuccessRate)
}
