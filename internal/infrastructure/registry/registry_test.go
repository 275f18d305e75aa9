package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gingerol/examguard/internal/domain/events"
	"github.com/gingerol/examguard/internal/domain/proctoring"
)

// recordingPublisher captures every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// memorySink stores appended alerts, optionally failing every call.
type memorySink struct {
	mu     sync.Mutex
	alerts []*proctoring.Alert
	fail   error
}

func (s *memorySink) Append(_ context.Context, alert *proctoring.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func newTestRegistry(sink AlertSink, pub Publisher) *Registry {
	return New(sink, pub, nil, Options{
		HeartbeatTimeout:    90 * time.Second,
		TerminatedRetention: time.Minute,
	})
}

func gazeFinding(sessionID string, gaze proctoring.GazeDirection) *proctoring.Finding {
	return &proctoring.Finding{
		Kind:       proctoring.FindingGaze,
		SessionID:  sessionID,
		Gaze:       gaze,
		ObservedAt: time.Now().UTC(),
		Sample:     proctoring.SampleImage,
	}
}

func TestStartCreatesActiveSession(t *testing.T) {
	pub := &recordingPublisher{}
	reg := newTestRegistry(&memorySink{}, pub)

	state, err := reg.Start("part-1", "sess-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if state.Status != proctoring.StatusActive {
		t.Errorf("Status = %v, want ACTIVE", state.Status)
	}
	if state.LatestStatus != proctoring.StatusTextAttentive {
		t.Errorf("LatestStatus = %q, want %q", state.LatestStatus, proctoring.StatusTextAttentive)
	}

	evts := pub.all()
	if len(evts) != 1 || evts[0].Type != events.TypeSessionStarted {
		t.Fatalf("published %v, want one session_started", evts)
	}
	if reg.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", reg.ActiveCount())
	}
}

func TestStartIsIdempotentForSameSession(t *testing.T) {
	pub := &recordingPublisher{}
	reg := newTestRegistry(&memorySink{}, pub)

	first, _ := reg.Start("part-1", "sess-1")
	second, err := reg.Start("part-1", "sess-1")
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if second.SessionID != first.SessionID || second.Status != proctoring.StatusActive {
		t.Errorf("second Start() returned %+v", second)
	}
	if second.LastHeartbeatAt.Before(first.LastHeartbeatAt) {
		t.Error("idempotent Start did not refresh the heartbeat clock")
	}

	if evts := pub.all(); len(evts) != 1 {
		t.Errorf("published %d events, want 1 (no duplicate session_started)", len(evts))
	}
}

func TestStartSupersedesPreviousSession(t *testing.T) {
	pub := &recordingPublisher{}
	reg := newTestRegistry(&memorySink{}, pub)

	reg.Start("part-1", "sess-old")
	state, err := reg.Start("part-1", "sess-new")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if state.SessionID != "sess-new" {
		t.Errorf("SessionID = %q, want sess-new", state.SessionID)
	}

	old, err := reg.Get("sess-old")
	if err != nil {
		t.Fatalf("Get(sess-old) error = %v", err)
	}
	if old.Status != proctoring.StatusSuperseded {
		t.Errorf("old status = %v, want SUPERSEDED", old.Status)
	}

	// session_ended for the old session must precede session_started for
	// the new one.
	evts := pub.all()
	if len(evts) != 3 {
		t.Fatalf("published %d events, want 3", len(evts))
	}
	if evts[1].Type != events.TypeSessionEnded {
		t.Errorf("events[1].Type = %v, want session_ended", evts[1].Type)
	}
	ended, ok := evts[1].Payload.(events.SessionEnded)
	if !ok || ended.SessionID != "sess-old" || ended.Reason != proctoring.EndReasonSuperseded {
		t.Errorf("session_ended payload = %+v", evts[1].Payload)
	}
	if evts[2].Type != events.TypeSessionStarted {
		t.Errorf("events[2].Type = %v, want session_started", evts[2].Type)
	}

	if reg.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", reg.ActiveCount())
	}
}

func TestStartRejectsForeignSessionID(t *testing.T) {
	reg := newTestRegistry(&memorySink{}, &recordingPublisher{})

	reg.Start("part-1", "sess-1")
	if _, err := reg.Start("part-2", "sess-1"); !errors.Is(err, proctoring.ErrSessionIDInUse) {
		t.Errorf("Start() error = %v, want ErrSessionIDInUse", err)
	}
}

func TestTerminatedSessionIDNeverReactivates(t *testing.T) {
	reg := newTestRegistry(&memorySink{}, &recordingPublisher{})

	reg.Start("part-1", "sess-1")
	if _, err := reg.Stop("sess-1", "part-1"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, err := reg.Start("part-1", "sess-1"); !errors.Is(err, proctoring.ErrSessionTerminated) {
		t.Errorf("Start() on terminated id error = %v, want ErrSessionTerminated", err)
	}
}

func TestHeartbeat(t *testing.T) {
	reg := newTestRegistry(&memorySink{}, &recordingPublisher{})

	if _, err := reg.Heartbeat("missing"); !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("Heartbeat(missing) error = %v, want ErrSessionNotFound", err)
	}

	start, _ := reg.Start("part-1", "sess-1")
	state, err := reg.Heartbeat("sess-1")
	if err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}
	if state.LastHeartbeatAt.Before(start.LastHeartbeatAt) {
		t.Error("Heartbeat did not refresh the liveness clock")
	}

	reg.Stop("sess-1", "part-1")
	if _, err := reg.Heartbeat("sess-1"); !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("Heartbeat(terminated) error = %v, want ErrSessionNotFound", err)
	}
}

func TestStopAuthorization(t *testing.T) {
	reg := newTestRegistry(&memorySink{}, &recordingPublisher{})

	reg.Start("part-1", "sess-1")
	if _, err := reg.Stop("sess-1", "part-2"); !errors.Is(err, proctoring.ErrUnauthorized) {
		t.Errorf("Stop() by non-owner error = %v, want ErrUnauthorized", err)
	}

	state, err := reg.Stop("sess-1", "part-1")
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if state.Status != proctoring.StatusStopped {
		t.Errorf("Status = %v, want STOPPED", state.Status)
	}

	// Stopping twice reports not found, sessions never leave terminal state.
	if _, err := reg.Stop("sess-1", "part-1"); !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("second Stop() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRecordFindingWithAlert(t *testing.T) {
	pub := &recordingPublisher{}
	sink := &memorySink{}
	reg := newTestRegistry(sink, pub)

	reg.Start("part-1", "sess-1")

	finding := gazeFinding("sess-1", proctoring.GazeLeft)
	intent := &proctoring.AlertIntent{
		AlertType: proctoring.AlertLookingAway,
		Severity:  proctoring.SeverityMedium,
		Message:   "Participant looking away (left)",
	}

	alert, state, err := reg.RecordFinding(context.Background(), "sess-1", finding, intent)
	if err != nil {
		t.Fatalf("RecordFinding() error = %v", err)
	}
	if alert == nil || alert.AlertID == "" {
		t.Fatal("expected a finalized alert with an id")
	}
	if alert.ParticipantID != "part-1" {
		t.Errorf("alert.ParticipantID = %q, want part-1", alert.ParticipantID)
	}
	if sink.count() != 1 {
		t.Errorf("alert sink holds %d alerts, want 1", sink.count())
	}

	if state.LatestStatus != "Looking Away (left)" {
		t.Errorf("LatestStatus = %q", state.LatestStatus)
	}
	if state.UnreadAlertCount != 1 {
		t.Errorf("UnreadAlertCount = %d, want 1", state.UnreadAlertCount)
	}
	if state.LastAlertType != proctoring.AlertLookingAway {
		t.Errorf("LastAlertType = %v", state.LastAlertType)
	}

	// new_alert precedes session_update.
	evts := pub.all()
	if len(evts) != 3 {
		t.Fatalf("published %d events, want 3", len(evts))
	}
	if evts[1].Type != events.TypeNewAlert || evts[2].Type != events.TypeSessionUpdate {
		t.Errorf("event order = %v, %v", evts[1].Type, evts[2].Type)
	}
}

func TestRecordFindingWithoutAlert(t *testing.T) {
	sink := &memorySink{}
	reg := newTestRegistry(sink, &recordingPublisher{})

	reg.Start("part-1", "sess-1")

	alert, state, err := reg.RecordFinding(context.Background(), "sess-1", gazeFinding("sess-1", proctoring.GazeForward), nil)
	if err != nil {
		t.Fatalf("RecordFinding() error = %v", err)
	}
	if alert != nil {
		t.Errorf("alert = %+v, want nil", alert)
	}
	if state.UnreadAlertCount != 0 {
		t.Errorf("UnreadAlertCount = %d, want 0", state.UnreadAlertCount)
	}
	if state.LatestStatus != proctoring.StatusTextAttentive {
		t.Errorf("LatestStatus = %q", state.LatestStatus)
	}
	if sink.count() != 0 {
		t.Errorf("alert sink holds %d alerts, want 0", sink.count())
	}
}

func TestRecordFindingAppendFailureLeavesStateUntouched(t *testing.T) {
	sinkErr := errors.New("disk full")
	sink := &memorySink{fail: sinkErr}
	pub := &recordingPublisher{}
	reg := newTestRegistry(sink, pub)

	reg.Start("part-1", "sess-1")

	intent := &proctoring.AlertIntent{AlertType: proctoring.AlertNoFace, Severity: proctoring.SeverityHigh}
	finding := &proctoring.Finding{Kind: proctoring.FindingNoFace, SessionID: "sess-1", Sample: proctoring.SampleImage, ObservedAt: time.Now().UTC()}

	_, _, err := reg.RecordFinding(context.Background(), "sess-1", finding, intent)
	if !errors.Is(err, sinkErr) {
		t.Fatalf("RecordFinding() error = %v, want sink failure", err)
	}

	state, _ := reg.Get("sess-1")
	if state.UnreadAlertCount != 0 || state.LatestStatus != proctoring.StatusTextAttentive {
		t.Errorf("failed append mutated state: %+v", state)
	}
	for _, evt := range pub.all() {
		if evt.Type == events.TypeNewAlert || evt.Type == events.TypeSessionUpdate {
			t.Errorf("failed append published %v", evt.Type)
		}
	}
}

func TestRecordFindingOnTerminatedSession(t *testing.T) {
	reg := newTestRegistry(&memorySink{}, &recordingPublisher{})

	reg.Start("part-1", "sess-1")
	reg.Stop("sess-1", "part-1")

	_, _, err := reg.RecordFinding(context.Background(), "sess-1", gazeFinding("sess-1", proctoring.GazeLeft), nil)
	if !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("RecordFinding() on terminated session error = %v, want ErrSessionNotFound", err)
	}
}

func TestResetUnread(t *testing.T) {
	pub := &recordingPublisher{}
	reg := newTestRegistry(&memorySink{}, pub)

	reg.Start("part-1", "sess-1")
	intent := &proctoring.AlertIntent{AlertType: proctoring.AlertLookingAway, Severity: proctoring.SeverityMedium}
	reg.RecordFinding(context.Background(), "sess-1", gazeFinding("sess-1", proctoring.GazeLeft), intent)

	before := len(pub.all())
	reg.ResetUnread("sess-1")

	state, _ := reg.Get("sess-1")
	if state.UnreadAlertCount != 0 {
		t.Errorf("UnreadAlertCount = %d, want 0", state.UnreadAlertCount)
	}
	evts := pub.all()
	if len(evts) != before+1 || evts[len(evts)-1].Type != events.TypeSessionUpdate {
		t.Errorf("ResetUnread did not publish a session_update")
	}

	// A second reset with nothing unread publishes nothing.
	reg.ResetUnread("sess-1")
	if len(pub.all()) != before+1 {
		t.Error("redundant ResetUnread published an event")
	}
}

func TestExpireStale(t *testing.T) {
	pub := &recordingPublisher{}
	reg := newTestRegistry(&memorySink{}, pub)

	reg.Start("part-1", "sess-1")
	reg.Start("part-2", "sess-2")
	reg.Heartbeat("sess-2")

	// Nothing is stale yet.
	if n := reg.ExpireStale(time.Now().UTC()); n != 0 {
		t.Errorf("ExpireStale() = %d, want 0", n)
	}

	// Both heartbeats are now past the timeout.
	future := time.Now().UTC().Add(2 * time.Minute)
	if n := reg.ExpireStale(future); n != 2 {
		t.Errorf("ExpireStale() = %d, want 2", n)
	}

	for _, id := range []string{"sess-1", "sess-2"} {
		state, err := reg.Get(id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if state.Status != proctoring.StatusExpired {
			t.Errorf("%s status = %v, want EXPIRED", id, state.Status)
		}
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d, want 0", reg.ActiveCount())
	}

	// Past the retention window the tombstones are pruned.
	later := future.Add(2 * time.Minute)
	reg.ExpireStale(later)
	if _, err := reg.Get("sess-1"); !errors.Is(err, proctoring.ErrSessionNotFound) {
		t.Errorf("Get() after retention error = %v, want ErrSessionNotFound", err)
	}
}

func TestActiveSessionsExcludesTerminal(t *testing.T) {
	reg := newTestRegistry(&memorySink{}, &recordingPublisher{})

	reg.Start("part-1", "sess-1")
	reg.Start("part-2", "sess-2")
	reg.Stop("sess-1", "part-1")

	active := reg.ActiveSessions()
	if len(active) != 1 || active[0].SessionID != "sess-2" {
		t.Errorf("ActiveSessions() = %+v", active)
	}
}

func TestConcurrentFindingsAndHeartbeats(t *testing.T) {
	sink := &memorySink{}
	reg := newTestRegistry(sink, &recordingPublisher{})

	reg.Start("part-1", "sess-1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			intent := &proctoring.AlertIntent{AlertType: proctoring.AlertLookingAway, Severity: proctoring.SeverityMedium}
			reg.RecordFinding(context.Background(), "sess-1", gazeFinding("sess-1", proctoring.GazeLeft), intent)
		}()
		go func() {
			defer wg.Done()
			reg.Heartbeat("sess-1")
		}()
	}
	wg.Wait()

	state, err := reg.Get("sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state.UnreadAlertCount != 20 {
		t.Errorf("UnreadAlertCount = %d, want 20", state.UnreadAlertCount)
	}
	if sink.count() != 20 {
		t.Errorf("alert sink holds %d alerts, want 20", sink.count())
	}
}
