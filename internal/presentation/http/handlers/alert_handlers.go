package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gingerol/examguard/internal/application/services"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/alerts"
)

// AlertHandlers contains the alert log HTTP handlers (dashboard only)
type AlertHandlers struct {
	alertLog    *services.AlertLogService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAlertHandlers creates alert handlers with injected dependencies
func NewAlertHandlers(alertLogService *services.AlertLogService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AlertHandlers {
	return &AlertHandlers{
		alertLog:    alertLogService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetAlerts handles GET /api/v1/alerts with optional session_id,
// participant_id, alert_type, since and limit query filters.
func (h *AlertHandlers) GetAlerts(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_alerts", c.Query("session_id"))
	defer marker.Complete()

	filter := alerts.AlertFilter{
		SessionID:     c.Query("session_id"),
		ParticipantID: c.Query("participant_id"),
		AlertType:     c.Query("alert_type"),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		filter.Since = t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	result, err := h.alertLog.List(filter)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"alerts": result,
		"count":  len(result),
	})
}

// AcknowledgeRequest is the body for POST /api/v1/alerts/:alertId/ack
type AcknowledgeRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// PostAcknowledgeAlert handles POST /api/v1/alerts/:alertId/ack
func (h *AlertHandlers) PostAcknowledgeAlert(c *gin.Context) {
	alertID := c.Param("alertId")

	var req AcknowledgeRequest
	// Body is optional; without a session id only the flag is flipped.
	_ = c.ShouldBindJSON(&req)

	if err := h.alertLog.Acknowledge(alertID, req.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to acknowledge alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

// GetSessionFindings handles GET /api/v1/sessions/:sessionId/findings
func (h *AlertHandlers) GetSessionFindings(c *gin.Context) {
	sessionID := c.Param("sessionId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	findings, err := h.alertLog.SessionFindings(sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load findings"})
		return
	}

	alertTotal, err := h.alertLog.SessionAlertTotal(sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alert total"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"findings":   findings,
		"count":      len(findings),
		"alertTotal": alertTotal,
	})
}
