package son

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/metrics"
	"github.com/platformbuilds/mirador-remediate/pkg/cache"
)

const (
	expiryLockKey  = "son:sweep:expiry"
	executeLockKey = "son:sweep:execute"
	sweepLockTTL   = 55 * time.Second
)

// Sweeper runs the two periodic background tasks: the hourly expiry sweep
// and the per-minute auto-execute sweep. A short cache lock keeps each sweep
// single-flight across replicas.
type Sweeper struct {
	workflow *Workflow
	cache    cache.Valkey
	logger   logging.Logger
	cron     *cron.Cron

	expirySpec  string
	executeSpec string
}

func NewSweeper(workflow *Workflow, valkey cache.Valkey, cfg config.SONConfig, log logging.Logger) *Sweeper {
	expirySpec := cfg.ExpirySweepCron
	if expirySpec == "" {
		expirySpec = "0 * * * *"
	}
	executeSpec := cfg.ExecuteSweepCron
	if executeSpec == "" {
		executeSpec = "* * * * *"
	}
	return &Sweeper{
		workflow:    workflow,
		cache:       valkey,
		logger:      log,
		cron:        cron.New(),
		expirySpec:  expirySpec,
		executeSpec: executeSpec,
	}
}

// Start registers both sweeps and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.expirySpec, s.runExpirySweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.executeSpec, s.runExecuteSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("SON sweeps scheduled",
		"expiry_cron", s.expirySpec, "execute_cron", s.executeSpec)
	return nil
}

// Stop halts the scheduler and waits for in-flight sweep runs to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !s.acquire(ctx, expiryLockKey, "expiry") {
		return
	}
	defer s.release(ctx, expiryLockKey)

	expired, err := s.workflow.ExpirePending(ctx, time.Now())
	if err != nil {
		metrics.SweepRuns.WithLabelValues("expiry", "failed").Inc()
		s.logger.Error("SON expiry sweep failed", "error", err)
		return
	}
	metrics.SweepRuns.WithLabelValues("expiry", "completed").Inc()
	if expired > 0 {
		s.logger.Info("SON expiry sweep completed", "expired", expired)
	}
}

func (s *Sweeper) runExecuteSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !s.acquire(ctx, executeLockKey, "execute") {
		return
	}
	defer s.release(ctx, executeLockKey)

	started, err := s.workflow.StartAutoExecutable(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("execute", "failed").Inc()
		s.logger.Error("SON auto-execute sweep failed", "error", err)
		return
	}
	metrics.SweepRuns.WithLabelValues("execute", "completed").Inc()
	if started > 0 {
		s.logger.Info("SON auto-execute sweep completed", "started", started)
	}
}

func (s *Sweeper) acquire(ctx context.Context, key, sweep string) bool {
	ok, err := s.cache.AcquireLock(ctx, key, sweepLockTTL)
	if err != nil {
		metrics.SweepRuns.WithLabelValues(sweep, "failed").Inc()
		s.logger.Warn("sweep lock acquisition failed", "sweep", sweep, "error", err)
		return false
	}
	if !ok {
		metrics.SweepRuns.WithLabelValues(sweep, "skipped").Inc()
		s.logger.Debug("sweep already running elsewhere", "sweep", sweep)
		return false
	}
	return true
}

func (s *Sweeper) release(ctx context.Context, key string) {
	if err := s.cache.ReleaseLock(ctx, key); err != nil {
		s.logger.Warn("sweep lock release failed", "key", key, "error", err)
	}
}
