package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platformbuilds/mirador-remediate/internal/alerts"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

type RuleHandler struct {
	rules     *alerts.RuleStore
	evaluator *alerts.Evaluator
	logger    logger.Logger
}

func NewRuleHandler(rules *alerts.RuleStore, evaluator *alerts.Evaluator, log logger.Logger) *RuleHandler {
	return &RuleHandler{
		rules:     rules,
		evaluator: evaluator,
		logger:    log,
	}
}

type createRuleRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" binding:"required"`
	MetricType string  `json:"metric_type" binding:"required"`
	Operator   string  `json:"operator" binding:"required"`
	Threshold  float64 `json:"threshold"`
	Severity   string  `json:"severity" binding:"required"`
	Message    string  `json:"message"`
	Enabled    *bool   `json:"enabled"`
}

var validOperators = map[string]bool{
	models.OpGreaterThan:    true,
	models.OpGreaterOrEqual: true,
	models.OpLessThan:       true,
	models.OpLessOrEqual:    true,
	models.OpEqual:          true,
}

// GET /api/v1/rules - List all alert rules
func (h *RuleHandler) GetRules(c *gin.Context) {
	rules := h.rules.GetAll()
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"rules": rules,
			"count": len(rules),
		},
	})
}

// GET /api/v1/rules/:id - Get a single rule
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, ok := h.rules.GetByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "rule not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   rule,
	})
}

// POST /api/v1/rules - Create a new alert rule
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid rule payload: " + err.Error(),
		})
		return
	}
	if !validOperators[req.Operator] {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "unsupported operator: " + req.Operator,
		})
		return
	}

	rule := models.AlertRule{
		ID:         req.ID,
		Name:       req.Name,
		MetricType: req.MetricType,
		Operator:   req.Operator,
		Threshold:  req.Threshold,
		Severity:   req.Severity,
		Message:    req.Message,
		Enabled:    true,
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	h.rules.Add(rule)
	h.logger.Info("alert rule created", "rule_id", rule.ID, "metric_type", rule.MetricType)
	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   rule,
	})
}

// DELETE /api/v1/rules/:id - Remove a rule
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	id := c.Param("id")
	h.rules.Remove(id)
	h.logger.Info("alert rule removed", "rule_id", id)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"id": id},
	})
}

// PUT /api/v1/rules/:id/enable - Enable a rule
func (h *RuleHandler) EnableRule(c *gin.Context) {
	h.toggle(c, true)
}

// PUT /api/v1/rules/:id/disable - Disable a rule
func (h *RuleHandler) DisableRule(c *gin.Context) {
	h.toggle(c, false)
}

func (h *RuleHandler) toggle(c *gin.Context, enabled bool) {
	id := c.Param("id")
	var ok bool
	if enabled {
		ok = h.rules.Enable(id)
	} else {
		ok = h.rules.Disable(id)
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "rule not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"id": id, "enabled": enabled},
	})
}

type thresholdRequest struct {
	Threshold float64 `json:"threshold" binding:"required"`
}

// PUT /api/v1/rules/:id/threshold - Replace a rule's threshold
func (h *RuleHandler) UpdateThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid threshold payload: " + err.Error(),
		})
		return
	}

	id := c.Param("id")
	if !h.rules.WithThreshold(id, req.Threshold) {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "rule not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"id": id, "threshold": req.Threshold},
	})
}

// GET /api/v1/alerts/active - List currently active alerts
func (h *RuleHandler) GetActiveAlerts(c *gin.Context) {
	active := h.evaluator.ActiveAlerts()
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"alerts": active,
			"count":  len(active),
		},
	})
}
