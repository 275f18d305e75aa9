package services

import (
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/email"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
)

// NotificationService emails high-severity alerts to the configured
// escalation address. Delivery happens off the request path and failures
// are logged, never propagated into the alert pipeline.
type NotificationService struct {
	email  email.Service
	logger *logging.ChanneledLogger
}

// NewNotificationService creates a new notification service. emailService
// may be nil when escalation is not configured; EscalateAlert is then a no-op.
func NewNotificationService(emailService email.Service, logger *logging.ChanneledLogger) *NotificationService {
	return &NotificationService{
		email:  emailService,
		logger: logger,
	}
}

// EscalateAlert sends the escalation email for one alert asynchronously.
func (s *NotificationService) EscalateAlert(alert *proctoring.Alert) {
	if s.email == nil {
		return
	}

	go func(a proctoring.Alert) {
		if err := s.email.SendAlertEscalation(&a); err != nil {
			s.logger.Alert().Error("Alert escalation email failed",
				"alertId", a.AlertID, "alertType", a.AlertType, "error", err.Error())
			return
		}
		s.logger.Alert().Info("Alert escalated by email",
			"alertId", a.AlertID, "alertType", a.AlertType)
	}(*alert)
}
