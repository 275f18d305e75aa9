// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/gingerol/examguard/internal/application/services"
	"github.com/gingerol/examguard/internal/infrastructure/analysis"
	"github.com/gingerol/examguard/internal/infrastructure/email"
	"github.com/gingerol/examguard/internal/infrastructure/media"
	"github.com/gingerol/examguard/internal/infrastructure/messaging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/alerts"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/database"
	"github.com/gingerol/examguard/internal/infrastructure/registry"
	"github.com/gingerol/examguard/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Observability
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker

	// Infrastructure
	DB            *database.DB
	AlertRepo     *alerts.SQLAlertRepository
	FindingRepo   *alerts.SQLFindingRepository
	SessionLog    *alerts.SQLSessionLogRepository
	SnapshotStore *media.SnapshotStore
	Hub           *messaging.Hub
	Registry      *registry.Registry
	Sweeper       *registry.Sweeper
	EmailService  email.Service

	// Application services
	AuthService       *services.AuthService
	AnalysisService   *services.AnalysisService
	ProctoringService *services.ProctoringService
	AlertLogService   *services.AlertLogService
	Notifications     *services.NotificationService
}

// NewContainer creates and wires all singleton services
func NewContainer() (*Container, error) {
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	perfTracker := performance.NewTracker()

	db, err := database.Open(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.NewTableCreator().CreateSchema(db.DB); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	alertRepo := alerts.NewSQLAlertRepository(db, logger)
	findingRepo := alerts.NewSQLFindingRepository(db, logger)
	sessionLog := alerts.NewSQLSessionLogRepository(db, logger)

	snapshotStore := media.NewSnapshotStore(
		config.EvidenceDir, config.SnapshotMaxWidth, config.SnapshotWebPQuality, logger)

	authService := services.NewAuthService(logger)
	hub := messaging.NewHub(authService, config.ObserverSendBuffer, logger)

	// Session lifecycle rows ride along with every broadcast.
	publisher := services.NewAuditingPublisher(hub, sessionLog, logger)

	reg := registry.New(alertRepo, publisher, logger, registry.Options{
		HeartbeatTimeout:    config.HeartbeatTimeout,
		TerminatedRetention: config.TerminatedRetention,
	})
	sweeper := registry.NewSweeper(reg, config.HeartbeatSweepInterval, logger)

	faceAnalyzer := analysis.NewHTTPFaceAnalyzer(
		config.FaceAnalyzerURL, config.FaceAnalyzerTimeout, logger)
	audioAnalyzer := analysis.NewWaveAudioAnalyzer(config.AAIAPIKey, logger)

	var emailService email.Service
	if config.ResendAPIKey != "" && config.EscalationTo != "" {
		emailService, err = email.NewService()
		if err != nil {
			return nil, fmt.Errorf("failed to create email service: %w", err)
		}
	} else {
		logger.Startup().Info("Alert escalation email disabled (no Resend configuration)")
	}
	notifications := services.NewNotificationService(emailService, logger)

	analysisService := services.NewAnalysisService(
		faceAnalyzer, audioAnalyzer, snapshotStore, findingRepo, logger, perfTracker)
	proctoringService := services.NewProctoringService(
		reg, analysisService, notifications, logger, perfTracker)
	alertLogService := services.NewAlertLogService(alertRepo, findingRepo, reg, logger)

	return &Container{
		Logger:      logger,
		PerfTracker: perfTracker,

		DB:            db,
		AlertRepo:     alertRepo,
		FindingRepo:   findingRepo,
		SessionLog:    sessionLog,
		SnapshotStore: snapshotStore,
		Hub:           hub,
		Registry:      reg,
		Sweeper:       sweeper,
		EmailService:  emailService,

		AuthService:       authService,
		AnalysisService:   analysisService,
		ProctoringService: proctoringService,
		AlertLogService:   alertLogService,
		Notifications:     notifications,
	}, nil
}

// Close releases the container's infrastructure resources.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
