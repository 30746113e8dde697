package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/mirador-remediate/internal/clients"
	"github.com/platformbuilds/mirador-remediate/pkg/cache"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

type HealthHandler struct {
	engine clients.AIEngine
	cache  cache.Valkey
	logger logger.Logger
}

func NewHealthHandler(engine clients.AIEngine, valkey cache.Valkey, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		engine: engine,
		cache:  valkey,
		logger: log,
	}
}

// GET /health - Liveness probe
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "mirador-remediate",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /ready - Readiness probe checking collaborator connectivity
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := gin.H{}
	healthy := true

	if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
		components["cache"] = gin.H{"status": "unhealthy", "error": err.Error()}
		healthy = false
	} else {
		components["cache"] = gin.H{"status": "healthy"}
	}

	// A down AI engine degrades diagnosis but the service still evaluates
	// alerts, so it is reported without failing readiness.
	if err := h.engine.HealthCheck(c.Request.Context()); err != nil {
		components["ai_engine"] = gin.H{"status": "degraded", "error": err.Error()}
	} else {
		components["ai_engine"] = gin.H{"status": "healthy"}
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
