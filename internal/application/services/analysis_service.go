package services

import (
	"context"
	"math"
	"time"

	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/analysis"
	"github.com/gingerol/examguard/internal/infrastructure/media"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/pkg/config"
)

// SnapshotStore persists evidence frames and resolves their refs.
type SnapshotStore interface {
	Store(sessionID string, imageData []byte) (string, error)
}

// FindingAuditor records findings for post-exam review. Best-effort.
type FindingAuditor interface {
	StoreFinding(finding *proctoring.Finding) error
}

// AnalysisService is the sample analysis adapter: it hands raw sample bytes
// to the external classifiers and normalizes their output into a Finding.
// It never touches session state.
type AnalysisService struct {
	faces       analysis.FaceAnalyzer
	audio       analysis.AudioAnalyzer
	snapshots   SnapshotStore
	audit       FindingAuditor
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(faces analysis.FaceAnalyzer, audio analysis.AudioAnalyzer, snapshots SnapshotStore, audit FindingAuditor, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AnalysisService {
	return &AnalysisService{
		faces:       faces,
		audio:       audio,
		snapshots:   snapshots,
		audit:       audit,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// AnalyzeImageSample classifies one submitted frame into a Finding.
// Anomalous frames are persisted as snapshot evidence before the finding is
// returned, so a later alert can reference them.
func (s *AnalysisService) AnalyzeImageSample(ctx context.Context, sessionID, participantID string, payload []byte, submittedAt time.Time) (*proctoring.Finding, error) {
	marker := s.perfTracker.StartOperation("analyze_image_sample", sessionID)
	defer marker.Complete()

	decoded, err := media.DecodeSampleImage(payload)
	if err != nil {
		marker.SetError(err)
		return nil, &proctoring.DecodeError{Sample: proctoring.SampleImage, Err: err}
	}

	result, err := s.faces.AnalyzeFrame(ctx, decoded)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	finding := &proctoring.Finding{
		SessionID:     sessionID,
		ParticipantID: participantID,
		ObservedAt:    submittedAt,
		Sample:        proctoring.SampleImage,
		FaceCount:     result.FaceCount,
		RawMetrics:    map[string]any{"face_count": result.FaceCount},
	}
	if result.GazeRatio != nil {
		finding.RawMetrics["gaze_ratio"] = *result.GazeRatio
	}
	marker.AddMetadata("faceCount", result.FaceCount)

	switch {
	case result.FaceCount == 0:
		finding.Kind = proctoring.FindingNoFace
	case result.FaceCount > 1:
		finding.Kind = proctoring.FindingMultipleFaces
		finding.Gaze = gazeFromAnalysis(result)
	default:
		finding.Kind = proctoring.FindingGaze
		finding.Gaze = gazeFromAnalysis(result)
	}

	if visualAnomaly(finding) {
		ref, err := s.snapshots.Store(sessionID, decoded)
		if err != nil {
			// Evidence is best-effort; the finding still stands.
			s.logger.Evidence().Warn("Snapshot store failed",
				"sessionId", sessionID, "kind", finding.Kind, "error", err.Error())
		} else {
			finding.SnapshotRef = ref
		}
	}

	s.auditFinding(finding)

	marker.SetSuccess(true)
	s.logger.Classify().Debug("Image sample analyzed",
		"sessionId", sessionID, "kind", finding.Kind, "faceCount", result.FaceCount)
	return finding, nil
}

// AnalyzeAudioSample classifies one submitted audio chunk into a Finding.
func (s *AnalysisService) AnalyzeAudioSample(ctx context.Context, sessionID, participantID string, payload []byte, submittedAt time.Time) (*proctoring.Finding, error) {
	marker := s.perfTracker.StartOperation("analyze_audio_sample", sessionID)
	defer marker.Complete()

	result, err := s.audio.AnalyzeChunk(ctx, payload)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	finding := &proctoring.Finding{
		SessionID:     sessionID,
		ParticipantID: participantID,
		ObservedAt:    submittedAt,
		Sample:        proctoring.SampleAudio,
		PeakLevelDBFS: result.PeakLevelDBFS,
		EventLabels:   result.EventLabels,
		RawMetrics: map[string]any{
			"peak_dbfs":   result.PeakLevelDBFS,
			"sample_rate": result.SampleRate,
		},
	}
	marker.AddMetadata("peakDbfs", result.PeakLevelDBFS)

	switch {
	case !math.IsInf(result.PeakLevelDBFS, -1) && result.PeakLevelDBFS > config.LoudnessThresholdDBFS:
		finding.Kind = proctoring.FindingLoudNoise
	case len(result.EventLabels) > 0:
		finding.Kind = proctoring.FindingAudioEvent
	default:
		finding.Kind = proctoring.FindingNormal
	}

	s.auditFinding(finding)

	marker.SetSuccess(true)
	s.logger.Classify().Debug("Audio sample analyzed",
		"sessionId", sessionID, "kind", finding.Kind, "peakDbfs", result.PeakLevelDBFS)
	return finding, nil
}

// auditFinding persists the audit row independently of the alert pipeline.
func (s *AnalysisService) auditFinding(finding *proctoring.Finding) {
	if s.audit == nil {
		return
	}
	if err := s.audit.StoreFinding(finding); err != nil {
		s.logger.Database().Warn("Finding audit write failed",
			"sessionId", finding.SessionID, "kind", finding.Kind, "error", err.Error())
	}
}

func gazeFromAnalysis(result *analysis.FaceAnalysis) proctoring.GazeDirection {
	if result.GazeDirection == nil {
		return proctoring.GazeForward
	}
	switch proctoring.GazeDirection(*result.GazeDirection) {
	case proctoring.GazeLeft:
		return proctoring.GazeLeft
	case proctoring.GazeRight:
		return proctoring.GazeRight
	case proctoring.GazeUp:
		return proctoring.GazeUp
	default:
		return proctoring.GazeForward
	}
}

func visualAnomaly(f *proctoring.Finding) bool {
	switch f.Kind {
	case proctoring.FindingNoFace, proctoring.FindingMultipleFaces:
		return true
	case proctoring.FindingGaze:
		return f.Gaze != proctoring.GazeForward
	default:
		return false
	}
}
