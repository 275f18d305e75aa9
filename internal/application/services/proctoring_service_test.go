package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gingerol/examguard/internal/domain/events"
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/analysis"
	"github.com/gingerol/examguard/internal/infrastructure/observability/performance"
	"github.com/gingerol/examguard/internal/infrastructure/registry"
)

type nullPublisher struct{}

func (nullPublisher) Publish(events.Event) {}

type memoryAlertSink struct {
	mu     sync.Mutex
	alerts []*proctoring.Alert
}

func (s *memoryAlertSink) Append(_ context.Context, alert *proctoring.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

type recordingEscalator struct {
	mu     sync.Mutex
	alerts []*proctoring.Alert
}

func (e *recordingEscalator) EscalateAlert(alert *proctoring.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, alert)
}

func (e *recordingEscalator) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.alerts)
}

func newPipeline(t *testing.T, faces analysis.FaceAnalyzer, audio analysis.AudioAnalyzer) (*ProctoringService, *memoryAlertSink, *recordingEscalator) {
	t.Helper()
	logger := newTestLogger(t)
	tracker := performance.NewTracker()

	sink := &memoryAlertSink{}
	reg := registry.New(sink, nullPublisher{}, logger, registry.Options{
		HeartbeatTimeout:    90 * time.Second,
		TerminatedRetention: time.Minute,
	})

	analysisService := NewAnalysisService(faces, audio, &fakeSnapshotStore{ref: "sess-1/frame.webp"}, &fakeAuditor{}, logger, tracker)
	escalator := &recordingEscalator{}
	svc := NewProctoringService(reg, analysisService, escalator, logger, tracker)
	return svc, sink, escalator
}

func TestSubmitImageSampleRaisesAlert(t *testing.T) {
	faces := &fakeFaceAnalyzer{result: &analysis.FaceAnalysis{FaceCount: 0}}
	svc, sink, escalator := newPipeline(t, faces, nil)

	svc.StartSession("part-1", "sess-1")

	alert, state, err := svc.SubmitImageSample(context.Background(), "sess-1", "part-1", pngSample, time.Now().UTC())
	if err != nil {
		t.Fatalf("SubmitImageSample() error = %v", err)
	}
	if alert == nil || alert.AlertType != proctoring.AlertNoFace {
		t.Fatalf("alert = %+v, want no_face_detected", alert)
	}
	if alert.SnapshotRef != "sess-1/frame.webp" {
		t.Errorf("alert.SnapshotRef = %q", alert.SnapshotRef)
	}
	if state.LatestStatus != proctoring.StatusTextNoFace {
		t.Errorf("LatestStatus = %q", state.LatestStatus)
	}
	if state.UnreadAlertCount != 1 {
		t.Errorf("UnreadAlertCount = %d, want 1", state.UnreadAlertCount)
	}
	if len(sink.alerts) != 1 {
		t.Errorf("persisted %d alerts, want 1", len(sink.alerts))
	}
	// High severity alerts escalate.
	if escalator.count() != 1 {
		t.Errorf("escalated %d alerts, want 1", escalator.count())
	}
}

func TestSubmitImageSampleAttentiveNoAlert(t *testing.T) {
	faces := &fakeFaceAnalyzer{result: &analysis.FaceAnalysis{FaceCount: 1}}
	svc, sink, escalator := newPipeline(t, faces, nil)

	svc.StartSession("part-1", "sess-1")

	alert, state, err := svc.SubmitImageSample(context.Background(), "sess-1", "part-1", pngSample, time.Now().UTC())
	if err != nil {
		t.Fatalf("SubmitImageSample() error = %v", err)
	}
	if alert != nil {
		t.Errorf("alert = %+v, want nil", alert)
	}
	if state.LatestStatus != proctoring.StatusTextAttentive {
		t.Errorf("LatestStatus = %q", state.LatestStatus)
	}
	if len(sink.alerts) != 0 || escalator.count() != 0 {
		t.Error("attentive sample produced persistence or escalation")
	}
}

func TestSubmitImageSampleMediumSeverityDoesNotEscalate(t *testing.T) {
	gaze := "right"
	faces := &fakeFaceAnalyzer{result: &analysis.FaceAnalysis{FaceCount: 1, GazeDirection: &gaze}}
	svc, _, escalator := newPipeline(t, faces, nil)

	svc.StartSession("part-1", "sess-1")

	alert, _, err := svc.SubmitImageSample(context.Background(), "sess-1", "part-1", pngSample, time.Now().UTC())
	if err != nil {
		t.Fatalf("SubmitImageSample() error = %v", err)
	}
	if alert == nil || alert.AlertType != proctoring.AlertLookingAway {
		t.Fatalf("alert = %+v, want looking_away", alert)
	}
	if escalator.count() != 0 {
		t.Errorf("medium severity alert escalated")
	}
}

func TestSubmitSampleToUnknownSession(t *testing.T) {
	faces := &fakeFaceAnalyzer{result: &analysis.FaceAnalysis{FaceCount: 1}}
	svc, _, _ := newPipeline(t, faces, nil)

	_, _, err := svc.SubmitImageSample(context.Background(), "missing", "part-1", pngSample, time.Now().UTC())
	if !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestSubmitSampleToStoppedSession(t *testing.T) {
	faces := &fakeFaceAnalyzer{result: &analysis.FaceAnalysis{FaceCount: 0}}
	svc, sink, _ := newPipeline(t, faces, nil)

	svc.StartSession("part-1", "sess-1")
	svc.StopSession("sess-1", "part-1")

	_, _, err := svc.SubmitImageSample(context.Background(), "sess-1", "part-1", pngSample, time.Now().UTC())
	if !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
	if len(sink.alerts) != 0 {
		t.Error("stopped session persisted an alert")
	}
}

func TestSubmitAudioSampleLoudNoiseAlert(t *testing.T) {
	audio := &fakeAudioAnalyzer{result: &analysis.AudioAnalysis{PeakLevelDBFS: -3.0, SampleRate: 16000}}
	svc, _, escalator := newPipeline(t, nil, audio)

	svc.StartSession("part-1", "sess-1")

	alert, state, err := svc.SubmitAudioSample(context.Background(), "sess-1", "part-1", []byte("wav"), time.Now().UTC())
	if err != nil {
		t.Fatalf("SubmitAudioSample() error = %v", err)
	}
	if alert == nil || alert.AlertType != proctoring.AlertLoudNoise {
		t.Fatalf("alert = %+v, want loud_noise_detected", alert)
	}
	if state.LatestStatus != proctoring.StatusTextLoudNoise {
		t.Errorf("LatestStatus = %q", state.LatestStatus)
	}
	if escalator.count() != 0 {
		t.Error("medium severity loud noise escalated")
	}
}

func TestAcknowledgeSessionAlerts(t *testing.T) {
	faces := &fakeFaceAnalyzer{result: &analysis.FaceAnalysis{FaceCount: 0}}
	svc, _, _ := newPipeline(t, faces, nil)

	svc.StartSession("part-1", "sess-1")
	svc.SubmitImageSample(context.Background(), "sess-1", "part-1", pngSample, time.Now().UTC())

	svc.AcknowledgeSessionAlerts("sess-1")

	state, err := svc.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if state.UnreadAlertCount != 0 {
		t.Errorf("UnreadAlertCount = %d, want 0", state.UnreadAlertCount)
	}
}
