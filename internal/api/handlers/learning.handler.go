package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/mirador-remediate/internal/learning"
	"github.com/platformbuilds/mirador-remediate/pkg/logger"
)

const defaultTopPatterns = 10

type LearningHandler struct {
	store  *learning.Store
	logger logger.Logger
}

func NewLearningHandler(store *learning.Store, log logger.Logger) *LearningHandler {
	return &LearningHandler{store: store, logger: log}
}

// GET /api/v1/learning/statistics - Aggregate learning statistics
func (h *LearningHandler) GetStatistics(c *gin.Context) {
	topN := defaultTopPatterns
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "top must be a positive integer",
			})
			return
		}
		topN = n
	}

	stats, err := h.store.Statistics(c.Request.Context(), topN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to compute learning statistics",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   stats,
	})
}

// GET /api/v1/learning/patterns/:problemCode - Get one learned pattern
func (h *LearningHandler) GetPattern(c *gin.Context) {
	pattern, err := h.store.Pattern(c.Request.Context(), c.Param("problemCode"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to load pattern",
		})
		return
	}
	if pattern == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "pattern not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   pattern,
	})
}

// GET /api/v1/learning/patterns?top=N - Top patterns by case volume
func (h *LearningHandler) GetTopPatterns(c *gin.Context) {
	topN := defaultTopPatterns
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"status": "error",
				"error":  "top must be a positive integer",
			})
			return
		}
		topN = n
	}

	patterns, err := h.store.TopPatterns(c.Request.Context(), topN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "failed to load patterns",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"patterns": patterns,
			"count":    len(patterns),
		},
	})
}
