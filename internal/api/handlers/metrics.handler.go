package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/mirador-remediate/internal/alerts"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// MetricsHandler accepts metric samples from the ingestion collaborator and
// feeds them through alert evaluation.
type MetricsHandler struct {
	evaluator *alerts.Evaluator
	logger    logger.Logger
}

func NewMetricsHandler(evaluator *alerts.Evaluator, log logger.Logger) *MetricsHandler {
	return &MetricsHandler{evaluator: evaluator, logger: log}
}

type metricSampleRequest struct {
	StationID   string   `json:"station_id" binding:"required"`
	StationName string   `json:"station_name"`
	MetricType  string   `json:"metric_type" binding:"required"`
	Value       *float64 `json:"value" binding:"required"`
	Timestamp   string   `json:"timestamp"`
}

// POST /api/v1/metrics/ingest - Evaluate a metric sample against alert rules
func (h *MetricsHandler) Ingest(c *gin.Context) {
	var req metricSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid metric sample: " + err.Error(),
		})
		return
	}

	ts := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "timestamp must be RFC3339",
			})
			return
		}
		ts = parsed
	}

	sample := &models.MetricSample{
		StationID:   req.StationID,
		StationName: req.StationName,
		MetricType:  req.MetricType,
		Value:       *req.Value,
		Timestamp:   ts,
	}

	triggered := h.evaluator.Evaluate(c.Request.Context(), sample)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"triggered_rules": triggered,
			"count":           len(triggered),
		},
	})
}
