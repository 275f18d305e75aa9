package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/media"
	"github.com/gingerol/examguard/internal/infrastructure/messaging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/infrastructure/registry"
	"github.com/gingerol/examguard/pkg/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || config.FrontendURL == "" {
			return true
		}
		return origin == config.FrontendURL || strings.HasPrefix(origin, "http://localhost")
	},
}

// DashboardHandlers contains the observer-facing stream and ops handlers
type DashboardHandlers struct {
	hub         *messaging.Hub
	registry    *registry.Registry
	snapshots   *media.SnapshotStore
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDashboardHandlers creates dashboard handlers with injected dependencies
func NewDashboardHandlers(hub *messaging.Hub, reg *registry.Registry, snapshots *media.SnapshotStore, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DashboardHandlers {
	return &DashboardHandlers{
		hub:         hub,
		registry:    reg,
		snapshots:   snapshots,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetDashboardStream handles GET /api/v1/dashboard/ws. The observer
// credential comes from the "token" query parameter or a bearer header;
// browsers cannot set arbitrary headers on websocket upgrades.
func (h *DashboardHandlers) GetDashboardStream(c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			credential = strings.TrimPrefix(header, "Bearer ")
		}
	}

	observer, err := h.hub.Subscribe(credential)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, proctoring.ErrUnauthorized) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": "observer authorization failed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Unsubscribe(observer)
		h.logger.Broadcast().Warn("Websocket upgrade failed",
			slog.String("observerId", observer.ID),
			slog.String("error", err.Error()))
		return
	}

	h.logger.Broadcast().Info("Observer stream opened",
		slog.String("observerId", observer.ID),
		slog.String("remoteAddr", c.ClientIP()))

	messaging.NewConnection(h.hub, observer, conn, h.logger).Serve()
}

// GetEvidenceSnapshot handles GET /api/v1/evidence/:sessionId/:filename
func (h *DashboardHandlers) GetEvidenceSnapshot(c *gin.Context) {
	ref := c.Param("sessionId") + "/" + c.Param("filename")

	path, err := h.snapshots.Resolve(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Header("Content-Type", "image/webp")
	c.File(path)
}

// DeleteSessionEvidence handles DELETE /api/v1/evidence/:sessionId. Removes
// every retained snapshot for the session once the operator is done with it.
func (h *DashboardHandlers) DeleteSessionEvidence(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.snapshots.Purge(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "evidence purge failed"})
		return
	}

	h.logger.Evidence().Info("Session evidence purged", "sessionId", sessionID)
	c.JSON(http.StatusOK, gin.H{"purged": true})
}

// GetHealth handles GET /api/v1/health
func (h *DashboardHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"activeSessions": h.registry.ActiveCount(),
		"observers":      h.hub.ObserverCount(),
		"uptime":         h.perfTracker.Uptime().String(),
	})
}

// GetPerformanceAlerts handles GET /api/v1/ops/performance
func (h *DashboardHandlers) GetPerformanceAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts": h.perfTracker.RecentAlerts(),
		"uptime": h.perfTracker.Uptime().String(),
	})
}

// GetLogLevels handles GET /api/v1/ops/logging
func (h *DashboardHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.logger.GetChannelLevels()})
}

// SetLogLevelRequest is the body for PUT /api/v1/ops/logging
type SetLogLevelRequest struct {
	Channel string `json:"channel" binding:"required"`
	Level   string `json:"level" binding:"required"`
}

// PutLogLevel handles PUT /api/v1/ops/logging
func (h *DashboardHandlers) PutLogLevel(c *gin.Context) {
	var req SetLogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and level are required"})
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(req.Level)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown log level"})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": req.Channel, "level": req.Level})
}
