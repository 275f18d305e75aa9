package services

import (
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/persistence/alerts"
)

// AlertLogService exposes the durable alert log to the dashboard: filtered
// listing, acknowledgment, and the per-session finding audit trail.
type AlertLogService struct {
	alerts   *alerts.SQLAlertRepository
	findings *alerts.SQLFindingRepository
	registry unreadResetter
	logger   *logging.ChanneledLogger
}

type unreadResetter interface {
	ResetUnread(sessionID string)
}

// NewAlertLogService creates a new alert log service
func NewAlertLogService(alertRepo *alerts.SQLAlertRepository, findingRepo *alerts.SQLFindingRepository, reg unreadResetter, logger *logging.ChanneledLogger) *AlertLogService {
	return &AlertLogService{
		alerts:   alertRepo,
		findings: findingRepo,
		registry: reg,
		logger:   logger,
	}
}

// List returns alerts matching the filter, newest first.
func (s *AlertLogService) List(filter alerts.AlertFilter) ([]*proctoring.Alert, error) {
	return s.alerts.List(filter)
}

// Acknowledge flips one alert's acknowledged flag and, when the alert's
// session is still live, clears its unread counter so the dashboard badge
// resets.
func (s *AlertLogService) Acknowledge(alertID, sessionID string) error {
	if err := s.alerts.Acknowledge(alertID); err != nil {
		return err
	}
	if sessionID != "" && s.registry != nil {
		s.registry.ResetUnread(sessionID)
	}
	return nil
}

// SessionFindings returns the audit trail for one session.
func (s *AlertLogService) SessionFindings(sessionID string, limit int) ([]*proctoring.Finding, error) {
	return s.findings.FindBySession(sessionID, limit)
}

// SessionAlertTotal reports how many alerts have been persisted for a
// session over its whole lifetime, independent of the unread counter.
func (s *AlertLogService) SessionAlertTotal(sessionID string) (int, error) {
	return s.alerts.CountBySession(sessionID)
}
