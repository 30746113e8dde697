package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/mirador-remediate/internal/alerts"
	"github.com/platformbuilds/mirador-remediate/internal/api/handlers"
	"github.com/platformbuilds/mirador-remediate/internal/api/middleware"
	"github.com/platformbuilds/mirador-remediate/internal/clients"
	"github.com/platformbuilds/mirador-remediate/internal/config"
	"github.com/platformbuilds/mirador-remediate/internal/diagnosis"
	"github.com/platformbuilds/mirador-remediate/internal/learning"
	"github.com/platformbuilds/mirador-remediate/internal/monitoring"
	"github.com/platformbuilds/mirador-remediate/internal/son"
	"github.com/platformbuilds/mirador-remediate/pkg/cache"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// Deps bundles the domain components the server exposes.
type Deps struct {
	Rules        *alerts.RuleStore
	Evaluator    *alerts.Evaluator
	Orchestrator *diagnosis.Orchestrator
	Learning     *learning.Store
	SON          *son.Workflow
	Engine       clients.AIEngine
	Cache        cache.Valkey
}

type Server struct {
	config     *config.Config
	logger     logger.Logger
	deps       Deps
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, log logger.Logger, deps Deps) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config: cfg,
		logger: log,
		deps:   deps,
		router: router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// CORS for dashboard communication
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))

	// Request logging
	s.router.Use(middleware.RequestLogger(s.logger))

	// Prometheus request metrics
	s.router.Use(monitoring.HTTPMetricsMiddleware())

	// Prometheus metrics endpoint
	monitoring.SetupPrometheusMetrics(s.router)
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.Engine, s.deps.Cache, s.logger)

	// Public health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")

	// Metric ingestion (the sole trigger for alert evaluation)
	metricsHandler := handlers.NewMetricsHandler(s.deps.Evaluator, s.logger)
	v1.POST("/metrics/ingest", metricsHandler.Ingest)

	// Alert rule management
	ruleHandler := handlers.NewRuleHandler(s.deps.Rules, s.deps.Evaluator, s.logger)
	v1.GET("/rules", ruleHandler.GetRules)
	v1.POST("/rules", ruleHandler.CreateRule)
	v1.GET("/rules/:id", ruleHandler.GetRule)
	v1.DELETE("/rules/:id", ruleHandler.DeleteRule)
	v1.PUT("/rules/:id/enable", ruleHandler.EnableRule)
	v1.PUT("/rules/:id/disable", ruleHandler.DisableRule)
	v1.PUT("/rules/:id/threshold", ruleHandler.UpdateThreshold)
	v1.GET("/alerts/active", ruleHandler.GetActiveAlerts)

	// Diagnostic sessions and feedback
	sessionHandler := handlers.NewSessionHandler(s.deps.Orchestrator, s.logger)
	v1.GET("/sessions", sessionHandler.GetSessions)
	v1.GET("/sessions/:id", sessionHandler.GetSession)
	v1.POST("/sessions/:id/apply", sessionHandler.MarkApplied)
	v1.POST("/sessions/:id/feedback", sessionHandler.SubmitFeedback)
	v1.POST("/commands/result", sessionHandler.HandleCommandResult)

	// Learned patterns
	learningHandler := handlers.NewLearningHandler(s.deps.Learning, s.logger)
	v1.GET("/learning/statistics", learningHandler.GetStatistics)
	v1.GET("/learning/patterns", learningHandler.GetTopPatterns)
	v1.GET("/learning/patterns/:problemCode", learningHandler.GetPattern)

	// SON recommendation lifecycle
	sonHandler := handlers.NewSONHandler(s.deps.SON, s.logger)
	v1.POST("/son/recommendations", sonHandler.CreateRecommendation)
	v1.GET("/son/recommendations", sonHandler.GetRecommendations)
	v1.GET("/son/recommendations/:id", sonHandler.GetRecommendation)
	v1.POST("/son/recommendations/:id/approve", sonHandler.Approve)
	v1.POST("/son/recommendations/:id/reject", sonHandler.Reject)
	v1.POST("/son/recommendations/:id/rollback", sonHandler.Rollback)
	v1.POST("/son/recommendations/:id/execution-result", sonHandler.RecordExecutionResult)
	v1.GET("/son/statistics", sonHandler.GetStatistics)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("MIRADOR-REMEDIATE API server starting", "port", s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
