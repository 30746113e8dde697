// Package learning maintains the per-problem-code outcome statistics that
// bias future diagnosis confidence.
package learning

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/metrics"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/internal/repo"
	"github.com/platformbuilds/mirador-remediate/pkg/cache"
)

const statsSnapshotName = "learning"

// Policy is the named learning policy: the minimum sample threshold for
// trusting an adjusted confidence, and the bounded optimistic retry applied
// to concurrent pattern updates.
type Policy struct {
	MinSampleSize int
	RetryAttempts uint
	RetryDelay    time.Duration
	StatsCacheTTL time.Duration
}

// PolicyFromConfig maps the configuration block to a Policy.
func PolicyFromConfig(cfg config.LearningConfig) Policy {
	return Policy{
		MinSampleSize: cfg.MinSampleSize,
		RetryAttempts: uint(cfg.Retry.Attempts),
		RetryDelay:    time.Duration(cfg.Retry.InitialDelay) * time.Millisecond,
		StatsCacheTTL: time.Duration(cfg.StatsCacheTTL) * time.Second,
	}
}

// Store accumulates solution outcomes into learned patterns and serves
// confidence adjustments and statistics.
type Store struct {
	patterns repo.PatternRepository
	sessions repo.SessionRepository
	cache    cache.Valkey
	policy   Policy
	logger   logging.Logger
}

func NewStore(
	patterns repo.PatternRepository,
	sessions repo.SessionRepository,
	valkey cache.Valkey,
	policy Policy,
	log logging.Logger,
) *Store {
	return &Store{
		patterns: patterns,
		sessions: sessions,
		cache:    valkey,
		policy:   policy,
		logger:   log,
	}
}

// RecordOutcome fetches-or-creates the learned pattern for problemCode and
// accumulates the outcome. Concurrent invocations for the same problem code
// race on the pattern row; conflicts and duplicate-creation races are
// retried with exponential backoff, and after the final attempt the update
// is logged and dropped. A lost learning update is a degradation, not a
// correctness violation, so this never fails the caller.
func (s *Store) RecordOutcome(ctx context.Context, problemCode, category string, solution *models.AISolution, wasEffective bool, rating int) {
	err := retry.Do(
		func() error {
			return s.applyOutcome(ctx, problemCode, category, wasEffective)
		},
		retry.Attempts(s.policy.RetryAttempts),
		retry.Delay(s.policy.RetryDelay),
		retry.MaxDelay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			metrics.LearningUpdates.WithLabelValues("retried").Inc()
			s.logger.Debug("learning update conflict, retrying",
				"problem_code", problemCode, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		metrics.LearningUpdates.WithLabelValues("dropped").Inc()
		s.logger.Warn("learning update dropped after retries",
			"problem_code", problemCode,
			"effective", wasEffective,
			"rating", rating,
			"error", err)
		return
	}

	metrics.LearningUpdates.WithLabelValues("applied").Inc()
	s.logger.Debug("learning outcome recorded",
		"problem_code", problemCode,
		"effective", wasEffective,
		"rating", rating)

	// Stats snapshots are stale after a write; drop the cached copy.
	_ = s.cache.Delete(ctx, "stats_cache:"+statsSnapshotName)
}

// applyOutcome is the single compare-and-swap-style persistence step wrapped
// by the retry combinator.
func (s *Store) applyOutcome(ctx context.Context, problemCode, category string, wasEffective bool) error {
	pattern, err := s.patterns.FindByProblemCode(ctx, problemCode)
	if err != nil {
		return retry.Unrecoverable(err)
	}

	if pattern == nil {
		pattern = &models.LearnedPattern{
			ProblemCode: problemCode,
			Category:    category,
		}
		record(pattern, wasEffective)
		if err := s.patterns.Insert(ctx, pattern); err != nil {
			if errors.Is(err, repo.ErrDuplicatePattern) {
				// Lost the creation race; re-fetch the winner's row and
				// reapply on the next attempt.
				return err
			}
			return retry.Unrecoverable(err)
		}
		return nil
	}

	record(pattern, wasEffective)
	if err := s.patterns.Update(ctx, pattern); err != nil {
		if errors.Is(err, repo.ErrVersionConflict) {
			return err
		}
		return retry.Unrecoverable(err)
	}
	return nil
}

func record(pattern *models.LearnedPattern, wasEffective bool) {
	if wasEffective {
		pattern.RecordSuccess()
	} else {
		pattern.RecordFailure()
	}
}

// AdjustConfidence overwrites the solution's confidence with the learned
// adjustment when a pattern exists and has enough data. Returns whether an
// adjustment occurred. Pure read; the store is not mutated.
func (s *Store) AdjustConfidence(ctx context.Context, solution *models.AISolution, problemCode string) (bool, error) {
	pattern, err := s.patterns.FindByProblemCode(ctx, problemCode)
	if err != nil {
		return false, err
	}
	if pattern == nil || !pattern.HasSufficientData(s.policy.MinSampleSize) {
		return false, nil
	}
	solution.Confidence = pattern.AdjustedConfidence
	return true, nil
}

// Pattern returns the learned pattern for a problem code, or nil when none
// exists.
func (s *Store) Pattern(ctx context.Context, problemCode string) (*models.LearnedPattern, error) {
	return s.patterns.FindByProblemCode(ctx, problemCode)
}

// TopPatterns returns up to n patterns ranked by total case volume.
func (s *Store) TopPatterns(ctx context.Context, n int) ([]*models.LearnedPattern, error) {
	return s.patterns.TopByVolume(ctx, n)
}

// Statistics aggregates session counts and the top-N pattern list into a
// read-only snapshot, cached in Valkey for a short TTL.
func (s *Store) Statistics(ctx context.Context, topN int) (*models.LearningStats, error) {
	if cached, err := s.cache.GetStatsSnapshot(ctx, statsSnapshotName); err == nil {
		var stats models.LearningStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
	}

	counts, err := s.sessions.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	autoApplied, err := s.sessions.CountAutoApplied(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.patterns.TopByVolume(ctx, topN)
	if err != nil {
		return nil, err
	}

	pending := 0
	for status, n := range counts {
		if status != models.SessionResolved && status != models.SessionFailed {
			pending += n
		}
	}

	stats := &models.LearningStats{
		ResolvedSessions:    counts[models.SessionResolved],
		FailedSessions:      counts[models.SessionFailed],
		PendingSessions:     pending,
		AutoAppliedSessions: autoApplied,
		TopPatterns:         top,
		GeneratedAt:         time.Now(),
	}

	if err := s.cache.CacheStatsSnapshot(ctx, statsSnapshotName, stats, s.policy.StatsCacheTTL); err != nil {
		s.logger.Debug("learning stats snapshot cache failed", "error", err)
	}

	return stats, nil
}
