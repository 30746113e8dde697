package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/mirador-remediate/internal/diagnosis"
	"github.com/platformbuilds/mirador-remediate/internal/models"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

// SessionHandler exposes diagnostic session queries and the two feedback
// channels (operator feedback and the command-result webhook).
type SessionHandler struct {
	orchestrator *diagnosis.Orchestrator
	logger       logger.Logger
}

func NewSessionHandler(orchestrator *diagnosis.Orchestrator, log logger.Logger) *SessionHandler {
	return &SessionHandler{orchestrator: orchestrator, logger: log}
}

// GET /api/v1/sessions/:id - Get a diagnostic session
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.orchestrator.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to load session",
		})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "session not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   session,
	})
}

// GET /api/v1/sessions?station_id=X&status=Y - Query sessions
func (h *SessionHandler) GetSessions(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		sessions []*models.DiagnosticSession
		err      error
	)
	switch {
	case c.Query("station_id") != "":
		sessions, err = h.orchestrator.SessionsByStation(ctx, c.Query("station_id"))
	case c.Query("status") != "":
		sessions, err = h.orchestrator.SessionsByStatus(ctx, c.Query("status"))
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
			"error":  "failed to query sessions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"sessions": sessions,
			"count":    len(sessions),
		},
	})
}

// POST /api/v1/sessions/:id/apply - Mark a diagnosed solution as applied
func (h *SessionHandler) MarkApplied(c *gin.Context) {
	ok, err := h.orchestrator.MarkApplied(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to update session",
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "session not found or not in DIAGNOSED state",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"id": c.Param("id"), "state": models.SessionPendingConfirmation},
	})
}

type feedbackRequest struct {
	WasEffective  *bool  `json:"was_effective" binding:"required"`
	Rating        int    `json:"rating"`
	Notes         string `json:"notes"`
	ActualOutcome string `json:"actual_outcome"`
	ConfirmedBy   string `json:"confirmed_by" binding:"required"`
}

// POST /api/v1/sessions/:id/feedback - Submit operator feedback
func (h *SessionHandler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid feedback payload: " + err.Error(),
		})
		return
	}

	session, err := h.orchestrator.SubmitFeedback(c.Request.Context(), c.Param("id"), diagnosis.FeedbackRequest{
		WasEffective:  *req.WasEffective,
		Rating:        req.Rating,
		Notes:         req.Notes,
		ActualOutcome: req.ActualOutcome,
		ConfirmedBy:   req.ConfirmedBy,
	})
	if err != nil {
		if errors.Is(err, diagnosis.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "rating must be between 1 and 5",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to record feedback",
		})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "session not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   session,
	})
}

type commandResultRequest struct {
	CommandID           string `json:"command_id" binding:"required"`
	DiagnosticSessionID string `json:"diagnostic_session_id" binding:"required"`
	ProblemCode         string `json:"problem_code"`
	Success             *bool  `json:"success" binding:"required"`
	ReturnCode          int    `json:"return_code"`
}

// POST /api/v1/commands/result - Command-result webhook from the execution
// collaborator, translated into system-identity feedback
func (h *SessionHandler) HandleCommandResult(c *gin.Context) {
	var req commandResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "invalid command result payload: " + err.Error(),
		})
		return
	}

	session, err := h.orchestrator.HandleCommandResult(c.Request.Context(), &models.CommandResult{
		CommandID:           req.CommandID,
		DiagnosticSessionID: req.DiagnosticSessionID,
		ProblemCode:         req.ProblemCode,
		Success:             *req.Success,
		ReturnCode:          req.ReturnCode,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to record command result",
		})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "session not found",
		})
		return
	}

	h.logger.Info("command result recorded",
		"command_id", req.CommandID, "session_id", req.DiagnosticSessionID, "success", *req.Success)
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   session,
	})
}
