package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platformbuilds/mirador-remediate/internal/alerts"
	"github.com/platformbuilds/mirador-remediate/internal/api"
	"github.com/platformbuilds/mirador-remediate/internal/clients"
	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/diagnosis"
	"github.com/platformbuilds/mirador-remediate/internal/learning"
	"github.com/platformbuilds/mirador-remediate/internal/logging"
	"github.com/platformbuilds/mirador-remediate/internal/repo"
	"github.com/platformbuilds/mirador-remediate/internal/services"
	"github.com/platformbuilds/mirador-remediate/internal/son"
	"github.com/platformbuilds/mirador-remediate/pkg/cache"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	logger.Info("Starting MIRADOR-REMEDIATE", "environment", cfg.Environment)

	// Initialize Valkey caching, falling back to in-memory when no nodes
	// are configured
	var valkey cache.Valkey
	if len(cfg.Cache.Nodes) > 0 {
		valkey, err = cache.NewValkey(cfg.Cache.Nodes[0], cfg.Cache.DB, cfg.Cache.Password, time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			logger.Warn("Failed to initialize Valkey cache, using in-memory fallback", "error", err)
			valkey = cache.NewNoopValkey(logger)
		} else {
			logger.Info("Valkey cache initialized", "node", cfg.Cache.Nodes[0])
		}
	} else {
		logger.Warn("No cache nodes configured, using in-memory fallback")
		valkey = cache.NewNoopValkey(logger)
	}

	domainLog := logging.FromCoreLogger(logger)

	// Repositories
	sessionRepo := repo.NewMemorySessionRepository()
	patternRepo := repo.NewMemoryPatternRepository()
	recRepo := repo.NewMemoryRecommendationRepository()

	// AI diagnosis engine client
	engine := clients.NewAIEngineClient(cfg.AIEngine, logger)

	// Learning store
	learningStore := learning.NewStore(patternRepo, sessionRepo, valkey, learning.PolicyFromConfig(cfg.Learning), domainLog)

	// Diagnosis orchestrator
	orchestrator := diagnosis.NewOrchestrator(sessionRepo, engine, learningStore, diagnosis.PolicyFromConfig(cfg.Remediation), domainLog)
	defer orchestrator.Close()

	// Alert evaluation pipeline
	ruleStore := alerts.NewRuleStoreFromConfig(cfg.Alerting)
	notifier := services.NewWebhookNotifier(cfg.Notifier, domainLog)
	evaluator := alerts.NewEvaluator(ruleStore, notifier, orchestrator, domainLog)
	logger.Info("Alert evaluator initialized", "seeded_rules", len(ruleStore.GetAll()))

	// SON recommendation lifecycle with its two background sweeps
	workflow := son.NewWorkflow(recRepo, cfg.SON, domainLog)
	sweeper := son.NewSweeper(workflow, valkey, cfg.SON, domainLog)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start SON sweeps", "error", err)
	}
	defer sweeper.Stop()

	// Initialize API server
	apiServer := api.NewServer(cfg, logger, api.Deps{
		Rules:        ruleStore,
		Evaluator:    evaluator,
		Orchestrator: orchestrator,
		Learning:     learningStore,
		SON:          workflow,
		Engine:       engine,
		Cache:        valkey,
	})

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
	}()

	// Start server
	if err := apiServer.Start(); err != nil {
		logger.Fatal("Server failed to start", "error", err)
	}

	logger.Info("MIRADOR-REMEDIATE shutdown complete")
}
