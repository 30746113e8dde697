package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/internal/son"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// SONHandler exposes the recommendation lifecycle: creation by the AI
// collaborator, approval decisions by operators, execution callbacks from
// the execution collaborator.
type SONHandler struct {
	workflow *son.Workflow
	logger   logger.Logger
}

func NewSONHandler(workflow *son.Workflow, log logger.Logger) *SONHandler {
	return &SONHandler{workflow: workflow, logger: log}
}

type createRecommendationRequest struct {
	StationID           string  `json:"station_id" binding:"required"`
	FunctionType        string  `json:"function_type" binding:"required"`
	ActionType          string  `json:"action_type" binding:"required"`
	ActionValue         string  `json:"action_value"`
	Description         string  `json:"description"`
	ExpectedImprovement string  `json:"expected_improvement"`
	Confidence          float64 `json:"confidence"`
	AutoExecutable      bool    `json:"auto_executable"`
	ApprovalRequired    bool    `json:"approval_required"`
	RollbackAction      string  `json:"rollback_action"`
	ExpiresAt           string  `json:"expires_at"`
}

// POST /api/v1/son/recommendations - Create a recommendation
func (h *SONHandler) CreateRecommendation(c *gin.Context) {
	var req createRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid recommendation payload: " + err.Error(),
		})
		return
	}

	rec := &models.SONRecommendation{
		StationID:           req.StationID,
		FunctionType:        req.FunctionType,
		ActionType:          req.ActionType,
		ActionValue:         req.ActionValue,
		Description:         req.Description,
		ExpectedImprovement: req.ExpectedImprovement,
		Confidence:          req.Confidence,
		AutoExecutable:      req.AutoExecutable,
		ApprovalRequired:    req.ApprovalRequired,
		RollbackAction:      req.RollbackAction,
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "expires_at must be RFC3339",
			})
			return
		}
		rec.ExpiresAt = expiresAt
	}

	created, err := h.workflow.Create(c.Request.Context(), rec)
	if err != nil {
		if errors.Is(err, son.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "unknown SON function type: " + req.FunctionType,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to create recommendation",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   created,
	})
}

// GET /api/v1/son/recommendations/:id - Get a recommendation
func (h *SONHandler) GetRecommendation(c *gin.Context) {
	rec, err := h.workflow.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to load recommendation",
		})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "recommendation not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   rec,
	})
}

// GET /api/v1/son/recommendations?station_id=X&status=Y - Query recommendations
func (h *SONHandler) GetRecommendations(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		recs []*models.SONRecommendation
		err  error
	)
	switch {
	case c.Query("station_id") != "":
		recs, err = h.workflow.ByStation(ctx, c.Query("station_id"))
	case c.Query("status") != "":
		recs, err = h.workflow.ByStatus(ctx, c.Query("status"))
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "station_id or status query parameter required",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to query recommendations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"recommendations": recs,
			"count":           len(recs),
		},
	})
}

type actorRequest struct {
	Actor  string `json:"actor" binding:"required"`
	Reason string `json:"reason"`
}

// POST /api/v1/son/recommendations/:id/approve - Approve a pending recommendation
func (h *SONHandler) Approve(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "actor is required",
		})
		return
	}
	h.transition(c, models.SONApproved, func() (bool, error) {
		return h.workflow.Approve(c.Request.Context(), c.Param("id"), req.Actor)
	})
}

// POST /api/v1/son/recommendations/:id/reject - Reject a pending recommendation
func (h *SONHandler) Reject(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "actor is required",
		})
		return
	}
	h.transition(c, models.SONRejected, func() (bool, error) {
		return h.workflow.Reject(c.Request.Context(), c.Param("id"), req.Actor, req.Reason)
	})
}

// POST /api/v1/son/recommendations/:id/rollback - Roll back an executed recommendation
func (h *SONHandler) Rollback(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "actor is required",
		})
		return
	}
	h.transition(c, models.SONRolledBack, func() (bool, error) {
		return h.workflow.Rollback(c.Request.Context(), c.Param("id"), req.Actor, req.Reason)
	})
}

type executionResultRequest struct {
	Success *bool  `json:"success" binding:"required"`
	Result  string `json:"result"`
}

// POST /api/v1/son/recommendations/:id/execution-result - Execution callback
func (h *SONHandler) RecordExecutionResult(c *gin.Context) {
	var req executionResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid execution result payload: " + err.Error(),
		})
		return
	}

	target := models.SONExecuted
	if !*req.Success {
		target = models.SONFailed
	}
	h.transition(c, target, func() (bool, error) {
		return h.workflow.RecordExecutionResult(c.Request.Context(), c.Param("id"), *req.Success, req.Result)
	})
}

// GET /api/v1/son/statistics - Lifecycle statistics
func (h *SONHandler) GetStatistics(c *gin.Context) {
	stats, err := h.workflow.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to compute SON statistics",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   stats,
	})
}

// transition runs a guarded workflow call and maps "guard not satisfied" to
// a conflict response rather than an error.
func (h *SONHandler) transition(c *gin.Context, target string, fn func() (bool, error)) {
	ok, err := fn()
	if err != nil {
		if errors.Is(err, son.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "actor is required",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to update recommendation",
		})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{
			"status": "error",
			"error":  "recommendation not found or not in an eligible state",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"id": c.Param("id"), "state": target},
	})
}
