package services

import (
	"context"
	"time"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/infrastructure/registry"
	"github.com/gingerol/examguard/pkg/config"
)

// Escalator forwards high-severity alerts to the notification path.
type Escalator interface {
	EscalateAlert(alert *proctoring.Alert)
}

// ProctoringService orchestrates the sample pipeline: adapter output goes
// through the classifier, then into the registry as one atomic update, and
// high-severity alerts fan out to the escalation path.
type ProctoringService struct {
	registry    *registry.Registry
	analysis    *AnalysisService
	escalator   Escalator
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewProctoringService creates a new proctoring service
func NewProctoringService(reg *registry.Registry, analysisService *AnalysisService, escalator Escalator, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ProctoringService {
	return &ProctoringService{
		registry:    reg,
		analysis:    analysisService,
		escalator:   escalator,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// StartSession begins (or refreshes) monitoring for a participant.
func (s *ProctoringService) StartSession(participantID, sessionID string) (proctoring.SessionState, error) {
	marker := s.perfTracker.StartOperation("start_session", sessionID)
	defer marker.Complete()

	state, err := s.registry.Start(participantID, sessionID)
	if err != nil {
		marker.SetError(err)
		return proctoring.SessionState{}, err
	}
	marker.SetSuccess(true)
	return state, nil
}

// Heartbeat refreshes session liveness.
func (s *ProctoringService) Heartbeat(sessionID string) (proctoring.SessionState, error) {
	return s.registry.Heartbeat(sessionID)
}

// StopSession ends monitoring at the owner's request.
func (s *ProctoringService) StopSession(sessionID, requesterParticipantID string) (proctoring.SessionState, error) {
	marker := s.perfTracker.StartOperation("stop_session", sessionID)
	defer marker.Complete()

	state, err := s.registry.Stop(sessionID, requesterParticipantID)
	if err != nil {
		marker.SetError(err)
		return proctoring.SessionState{}, err
	}
	marker.SetSuccess(true)
	return state, nil
}

// SubmitImageSample runs one frame through analyze -> classify -> record.
// Returns the alert that fired (nil if none) and the updated session state.
func (s *ProctoringService) SubmitImageSample(ctx context.Context, sessionID, participantID string, payload []byte, submittedAt time.Time) (*proctoring.Alert, proctoring.SessionState, error) {
	marker := s.perfTracker.StartOperation("submit_image_sample", sessionID)
	defer marker.Complete()

	// Fail fast on dead sessions before paying for classification.
	prior, err := s.registry.Get(sessionID)
	if err != nil {
		marker.SetError(err)
		return nil, proctoring.SessionState{}, err
	}
	if prior.Status != proctoring.StatusActive {
		marker.SetError(proctoring.ErrSessionNotFound)
		return nil, proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	finding, err := s.analysis.AnalyzeImageSample(ctx, sessionID, participantID, payload, submittedAt)
	if err != nil {
		marker.SetError(err)
		return nil, proctoring.SessionState{}, err
	}

	return s.record(ctx, marker, prior.LatestStatus, finding)
}

// SubmitAudioSample runs one audio chunk through the same pipeline.
func (s *ProctoringService) SubmitAudioSample(ctx context.Context, sessionID, participantID string, payload []byte, submittedAt time.Time) (*proctoring.Alert, proctoring.SessionState, error) {
	marker := s.perfTracker.StartOperation("submit_audio_sample", sessionID)
	defer marker.Complete()

	prior, err := s.registry.Get(sessionID)
	if err != nil {
		marker.SetError(err)
		return nil, proctoring.SessionState{}, err
	}
	if prior.Status != proctoring.StatusActive {
		marker.SetError(proctoring.ErrSessionNotFound)
		return nil, proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	finding, err := s.analysis.AnalyzeAudioSample(ctx, sessionID, participantID, payload, submittedAt)
	if err != nil {
		marker.SetError(err)
		return nil, proctoring.SessionState{}, err
	}

	return s.record(ctx, marker, prior.LatestStatus, finding)
}

func (s *ProctoringService) record(ctx context.Context, marker *performance.Marker, previousStatus string, finding *proctoring.Finding) (*proctoring.Alert, proctoring.SessionState, error) {
	intent := proctoring.Classify(finding, previousStatus, proctoring.Thresholds{
		LoudnessDBFS: config.LoudnessThresholdDBFS,
	})

	alert, state, err := s.registry.RecordFinding(ctx, finding.SessionID, finding, intent)
	if err != nil {
		marker.SetError(err)
		return nil, proctoring.SessionState{}, err
	}

	if alert != nil {
		s.logger.WithSession(logging.ChannelAlert, alert.SessionID).Info("Alert raised",
			"alertId", alert.AlertID,
			"alertType", alert.AlertType,
			"severity", alert.Severity)
		if s.escalator != nil && alert.Severity == proctoring.SeverityHigh {
			s.escalator.EscalateAlert(alert)
		}
	}

	marker.SetSuccess(true)
	return alert, state, nil
}

// ActiveSessions lists all live session snapshots for the dashboard.
func (s *ProctoringService) ActiveSessions() []proctoring.SessionState {
	return s.registry.ActiveSessions()
}

// GetSession returns one session snapshot, terminal sessions included.
func (s *ProctoringService) GetSession(sessionID string) (proctoring.SessionState, error) {
	return s.registry.Get(sessionID)
}

// AcknowledgeSessionAlerts resets the unread counter after an operator
// reviews a session's alerts.
func (s *ProctoringService) AcknowledgeSessionAlerts(sessionID string) {
	s.registry.ResetUnread(sessionID)
}
