package learning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/internal/repo"
	"github.com/platformbuilds/mirador-remediate/pkg/cache"
)

func testPolicy() Policy {
	return Policy{
		MinSampleSize: 5,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		StatsCacheTTL: time.Second,
	}
}

func newTestStore() (*Store, *repo.MemoryPatternRepository, *repo.MemorySessionRepository) {
	patterns := repo.NewMemoryPatternRepository()
	sessions := repo.NewMemorySessionRepository()
	store := NewStore(patterns, sessions, cache.NewNoopValkey(nil), testPolicy(), logging.FromCoreLogger(nil))
	return store, patterns, sessions
}

func TestRecordOutcome_CreatesPatternOnFirstOutcome(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	store.RecordOutcome(ctx, "st-1:cpu-high", "cpu_usage", nil, true, 5)

	pattern, err := store.Pattern(ctx, "st-1:cpu-high")
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.Equal(t, "cpu_usage", pattern.Category)
	assert.Equal(t, 1, pattern.ResolvedCount)
	assert.Equal(t, 0, pattern.FailedCount)
	assert.Equal(t, 1.0, pattern.AdjustedConfidence)
}

func TestRecordOutcome_AccumulatesSuccessesAndFailures(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, true, 5)
	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, true, 4)
	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, false, 1)
	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, false, 2)

	pattern, err := store.Pattern(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.Equal(t, 2, pattern.ResolvedCount)
	assert.Equal(t, 2, pattern.FailedCount)
	assert.Equal(t, 0.5, pattern.AdjustedConfidence)
}

// Concurrent outcomes for the same problem code must not lose updates: the
// final combined count equals the number of callers.
func TestRecordOutcome_ConcurrentCallersNoLostUpdates(t *testing.T) {
	// Enough retry headroom that no update is abandoned; the drop path is
	// exercised separately under an injected persistent conflict.
	policy := testPolicy()
	policy.RetryAttempts = 100
	store := NewStore(repo.NewMemoryPatternRepository(), repo.NewMemorySessionRepository(),
		cache.NewNoopValkey(nil), policy, logging.FromCoreLogger(nil))
	ctx := context.Background()

	const callers = 32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(effective bool) {
			defer wg.Done()
			store.RecordOutcome(ctx, "p1", "cpu_usage", nil, effective, 3)
		}(i%2 == 0)
	}
	wg.Wait()

	pattern, err := store.Pattern(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.Equal(t, callers, pattern.TotalCount())
	assert.Equal(t, callers/2, pattern.ResolvedCount)
	assert.Equal(t, callers/2, pattern.FailedCount)
}

// conflictingPatternRepo simulates a pattern row that is always modified
// between read and write, so every update attempt hits a version conflict.
type conflictingPatternRepo struct {
	repo.MemoryPatternRepository
	mu       sync.Mutex
	attempts int
}

func (r *conflictingPatternRepo) FindByProblemCode(_ context.Context, _ string) (*models.LearnedPattern, error) {
	return &models.LearnedPattern{ProblemCode: "p1", Version: 1}, nil
}

func (r *conflictingPatternRepo) Update(_ context.Context, _ *models.LearnedPattern) error {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()
	return repo.ErrVersionConflict
}

// A persistent conflict exhausts the bounded retries and the update is
// dropped without blocking or failing the caller.
func TestRecordOutcome_PersistentConflictDropsGracefully(t *testing.T) {
	conflicting := &conflictingPatternRepo{}
	sessions := repo.NewMemorySessionRepository()
	store := NewStore(conflicting, sessions, cache.NewNoopValkey(nil), testPolicy(), logging.FromCoreLogger(nil))

	done := make(chan struct{})
	go func() {
		store.RecordOutcome(context.Background(), "p1", "cpu_usage", nil, true, 5)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RecordOutcome blocked on a persistent conflict")
	}

	conflicting.mu.Lock()
	defer conflicting.mu.Unlock()
	assert.Equal(t, 3, conflicting.attempts)
}

func TestAdjustConfidence_BelowMinSamplesLeavesConfidence(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	// 4 outcomes: one below the threshold of 5
	for i := 0; i < 4; i++ {
		store.RecordOutcome(ctx, "p1", "cpu_usage", nil, true, 5)
	}

	solution := &models.AISolution{Confidence: 0.42}
	adjusted, err := store.AdjustConfidence(ctx, solution, "p1")
	require.NoError(t, err)
	assert.False(t, adjusted)
	assert.Equal(t, 0.42, solution.Confidence)
}

func TestAdjustConfidence_AtMinSamplesOverwritesConfidence(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		store.RecordOutcome(ctx, "p1", "cpu_usage", nil, true, 5)
	}
	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, false, 1)

	solution := &models.AISolution{Confidence: 0.42}
	adjusted, err := store.AdjustConfidence(ctx, solution, "p1")
	require.NoError(t, err)
	assert.True(t, adjusted)
	assert.Equal(t, 0.8, solution.Confidence)
}

func TestAdjustConfidence_UnknownPatternIsNoop(t *testing.T) {
	store, _, _ := newTestStore()

	solution := &models.AISolution{Confidence: 0.42}
	adjusted, err := store.AdjustConfidence(context.Background(), solution, "never-seen")
	require.NoError(t, err)
	assert.False(t, adjusted)
	assert.Equal(t, 0.42, solution.Confidence)
}

func TestStatistics_AggregatesSessionsAndTopPatterns(t *testing.T) {
	store, _, sessions := newTestStore()
	ctx := context.Background()

	save := func(id, status string, autoApplied bool) {
		require.NoError(t, sessions.Save(ctx, &models.DiagnosticSession{
			ID:          id,
			ProblemID:   id,
			Status:      status,
			AutoApplied: autoApplied,
		}))
	}
	save("s1", models.SessionResolved, true)
	save("s2", models.SessionResolved, false)
	save("s3", models.SessionFailed, false)
	save("s4", models.SessionDetected, false)
	save("s5", models.SessionDiagnosed, false)

	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, true, 5)
	store.RecordOutcome(ctx, "p1", "cpu_usage", nil, true, 5)
	store.RecordOutcome(ctx, "p2", "memory_usage", nil, false, 1)

	stats, err := store.Statistics(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ResolvedSessions)
	assert.Equal(t, 1, stats.FailedSessions)
	assert.Equal(t, 2, stats.PendingSessions)
	assert.Equal(t, 1, stats.AutoAppliedSessions)
	require.Len(t, stats.TopPatterns, 2)
	assert.Equal(t, "p1", stats.TopPatterns[0].ProblemCode)
}
