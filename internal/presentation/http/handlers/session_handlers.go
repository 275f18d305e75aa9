// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gingerol/examguard/internal/application/services"
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/presentation/http/middleware"
)

// SessionHandlers contains the session lifecycle HTTP handlers
type SessionHandlers struct {
	proctoring  *services.ProctoringService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSessionHandlers creates session handlers with injected dependencies
func NewSessionHandlers(proctoringService *services.ProctoringService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SessionHandlers {
	return &SessionHandlers{
		proctoring:  proctoringService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// StartSessionRequest is the body for POST /api/v1/sessions/start
type StartSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// PostStartSession handles POST /api/v1/sessions/start
func (h *SessionHandlers) PostStartSession(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	marker := h.perfTracker.StartOperation("post_start_session", req.SessionID)
	defer marker.Complete()

	state, err := h.proctoring.StartSession(identity.SubjectID, req.SessionID)
	if err != nil {
		marker.SetError(err)
		respondSessionError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"session": state})
}

// PostHeartbeat handles POST /api/v1/sessions/:sessionId/heartbeat
func (h *SessionHandlers) PostHeartbeat(c *gin.Context) {
	sessionID := c.Param("sessionId")

	state, err := h.proctoring.Heartbeat(sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": state})
}

// PostStopSession handles POST /api/v1/sessions/:sessionId/stop
func (h *SessionHandlers) PostStopSession(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sessionID := c.Param("sessionId")
	marker := h.perfTracker.StartOperation("post_stop_session", sessionID)
	defer marker.Complete()

	state, err := h.proctoring.StopSession(sessionID, identity.SubjectID)
	if err != nil {
		marker.SetError(err)
		respondSessionError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"session": state})
}

// GetActiveSessions handles GET /api/v1/sessions/active (dashboard only)
func (h *SessionHandlers) GetActiveSessions(c *gin.Context) {
	sessions := h.proctoring.ActiveSessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/v1/sessions/:sessionId (dashboard only)
func (h *SessionHandlers) GetSession(c *gin.Context) {
	state, err := h.proctoring.GetSession(c.Param("sessionId"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": state})
}

// respondSessionError maps pipeline errors onto HTTP statuses.
func respondSessionError(c *gin.Context, err error) {
	var decodeErr *proctoring.DecodeError
	var classifyErr *proctoring.ClassificationError

	switch {
	case errors.Is(err, proctoring.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, proctoring.ErrSessionTerminated):
		c.JSON(http.StatusConflict, gin.H{"error": "session already terminated"})
	case errors.Is(err, proctoring.ErrSessionIDInUse):
		c.JSON(http.StatusConflict, gin.H{"error": "session id already in use"})
	case errors.Is(err, proctoring.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, proctoring.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.As(err, &decodeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": decodeErr.Error()})
	case errors.As(err, &classifyErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "sample classification unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
