package services

import (
	"time"

	"github.com/gingerol/examguard/internal/domain/events"
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
)

// SessionLogWriter records session lifecycle rows.
type SessionLogWriter interface {
	RecordStart(sessionID, participantID string, startedAt time.Time) error
	RecordEnd(sessionID, status, endReason string, endedAt time.Time) error
}

// EventPublisher matches the registry's publisher seam.
type EventPublisher interface {
	Publish(evt events.Event)
}

// AuditingPublisher decorates the broadcast hub: lifecycle events are
// mirrored into the session log before fan-out. Writes run on their own
// goroutine because Publish is called inside registry critical sections
// and must stay non-blocking.
type AuditingPublisher struct {
	next       EventPublisher
	sessionLog SessionLogWriter
	logger     *logging.ChanneledLogger
}

// NewAuditingPublisher wraps a publisher with session lifecycle persistence.
func NewAuditingPublisher(next EventPublisher, sessionLog SessionLogWriter, logger *logging.ChanneledLogger) *AuditingPublisher {
	return &AuditingPublisher{
		next:       next,
		sessionLog: sessionLog,
		logger:     logger,
	}
}

// Publish mirrors lifecycle events to the session log, then forwards.
func (p *AuditingPublisher) Publish(evt events.Event) {
	if p.sessionLog != nil {
		switch payload := evt.Payload.(type) {
		case events.SessionStarted:
			go func() {
				if err := p.sessionLog.RecordStart(payload.SessionID, payload.ParticipantID, payload.StartedAt); err != nil {
					p.logger.Database().Warn("Session start audit failed",
						"sessionId", payload.SessionID, "error", err.Error())
				}
			}()
		case events.SessionEnded:
			endedAt := time.Now().UTC()
			go func() {
				if err := p.sessionLog.RecordEnd(payload.SessionID, statusForReason(payload.Reason), string(payload.Reason), endedAt); err != nil {
					p.logger.Database().Warn("Session end audit failed",
						"sessionId", payload.SessionID, "error", err.Error())
				}
			}()
		}
	}

	if p.next != nil {
		p.next.Publish(evt)
	}
}

func statusForReason(reason proctoring.EndReason) string {
	switch reason {
	case proctoring.EndReasonSuperseded:
		return string(proctoring.StatusSuperseded)
	case proctoring.EndReasonExplicitStop:
		return string(proctoring.StatusStopped)
	case proctoring.EndReasonHeartbeatTimeout:
		return string(proctoring.StatusExpired)
	default:
		return string(proctoring.StatusStopped)
	}
}
