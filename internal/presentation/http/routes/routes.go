// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/gingerol/examguard/internal/application/container"
	"github.com/gingerol/examguard/internal/presentation/http/handlers"
	"github.com/gingerol/examguard/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	sessionHandlers := handlers.NewSessionHandlers(container.ProctoringService, container.Logger, container.PerfTracker)
	sampleHandlers := handlers.NewSampleHandlers(container.ProctoringService, container.Logger, container.PerfTracker)
	alertHandlers := handlers.NewAlertHandlers(container.AlertLogService, container.Logger, container.PerfTracker)
	dashboardHandlers := handlers.NewDashboardHandlers(container.Hub, container.Registry, container.SnapshotStore, container.Logger, container.PerfTracker)

	api := r.Group("/api/v1")
	{
		api.GET("/health", dashboardHandlers.GetHealth)

		// Observer stream authenticates inside the handler; websocket
		// upgrades carry the credential as a query parameter.
		api.GET("/dashboard/ws", dashboardHandlers.GetDashboardStream)

		// Participant endpoints (JWT identity required)
		participant := api.Group("")
		participant.Use(middleware.ParticipantAuthMiddleware(container.AuthService))
		{
			participant.POST("/sessions/start", sessionHandlers.PostStartSession)
			participant.POST("/sessions/:sessionId/heartbeat", sessionHandlers.PostHeartbeat)
			participant.POST("/sessions/:sessionId/stop", sessionHandlers.PostStopSession)
			participant.POST("/sessions/:sessionId/samples/image", sampleHandlers.PostImageSample)
			participant.POST("/sessions/:sessionId/samples/audio", sampleHandlers.PostAudioSample)
		}

		// Dashboard endpoints (elevated role required)
		dashboard := api.Group("")
		dashboard.Use(middleware.ParticipantAuthMiddleware(container.AuthService))
		dashboard.Use(middleware.ElevatedOnlyMiddleware())
		{
			dashboard.GET("/sessions/active", sessionHandlers.GetActiveSessions)
			dashboard.GET("/sessions/:sessionId", sessionHandlers.GetSession)
			dashboard.GET("/sessions/:sessionId/findings", alertHandlers.GetSessionFindings)
			dashboard.GET("/alerts", alertHandlers.GetAlerts)
			dashboard.POST("/alerts/:alertId/ack", alertHandlers.PostAcknowledgeAlert)
			dashboard.GET("/evidence/:sessionId/:filename", dashboardHandlers.GetEvidenceSnapshot)
			dashboard.DELETE("/evidence/:sessionId", dashboardHandlers.DeleteSessionEvidence)

			dashboard.GET("/ops/performance", dashboardHandlers.GetPerformanceAlerts)
			dashboard.GET("/ops/logging", dashboardHandlers.GetLogLevels)
			dashboard.PUT("/ops/logging", dashboardHandlers.PutLogLevel)
		}
	}

	return r
}
