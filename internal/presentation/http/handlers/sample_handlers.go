package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gingerol/examguard/internal/application/services"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/presentation/http/middleware"
)

// Caps one submitted sample. Frames arrive as raw bytes or base64 data
// URLs; audio as WAV chunks.
const maxSampleBytes = 8 << 20

// SampleHandlers contains the sample submission HTTP handlers
type SampleHandlers struct {
	proctoring  *services.ProctoringService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSampleHandlers creates sample handlers with injected dependencies
func NewSampleHandlers(proctoringService *services.ProctoringService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SampleHandlers {
	return &SampleHandlers{
		proctoring:  proctoringService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostImageSample handles POST /api/v1/sessions/:sessionId/samples/image
func (h *SampleHandlers) PostImageSample(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sessionID := c.Param("sessionId")
	payload, err := readSample(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable sample payload"})
		return
	}

	alert, state, err := h.proctoring.SubmitImageSample(
		c.Request.Context(), sessionID, identity.SubjectID, payload, time.Now().UTC())
	if err != nil {
		respondSessionError(c, err)
		return
	}

	resp := gin.H{"session": state}
	if alert != nil {
		resp["alert"] = alert
	}
	c.JSON(http.StatusOK, resp)
}

// PostAudioSample handles POST /api/v1/sessions/:sessionId/samples/audio
func (h *SampleHandlers) PostAudioSample(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sessionID := c.Param("sessionId")
	payload, err := readSample(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable sample payload"})
		return
	}

	alert, state, err := h.proctoring.SubmitAudioSample(
		c.Request.Context(), sessionID, identity.SubjectID, payload, time.Now().UTC())
	if err != nil {
		respondSessionError(c, err)
		return
	}

	resp := gin.H{"session": state}
	if alert != nil {
		resp["alert"] = alert
	}
	c.JSON(http.StatusOK, resp)
}

func readSample(c *gin.Context) ([]byte, error) {
	defer c.Request.Body.Close()
	return io.ReadAll(io.LimitReader(c.Request.Body, maxSampleBytes))
}
