package performance

import (
	"testing"
	"time"
)

func newStrictTracker() *Tracker {
	t := NewTracker()
	t.thresholds = &Thresholds{
		SlowResponse:     time.Nanosecond,
		CriticalResponse: time.Hour,
		AuthOperation:    time.Hour,
		PublishOperation: time.Hour,
		DatabaseQuery:    time.Hour,
	}
	return t
}

func TestCompleteReportsThresholdAlerts(t *testing.T) {
	tracker := newStrictTracker()

	marker := tracker.StartOperation("submit_image_sample", "sess-1")
	time.Sleep(time.Millisecond)
	marker.Complete()

	alerts := tracker.RecentAlerts()
	if len(alerts) != 1 {
		t.Fatalf("RecentAlerts() returned %d alerts, want 1", len(alerts))
	}
	if alerts[0].Operation != "submit_image_sample" || alerts[0].Level != AlertWarning {
		t.Errorf("alert = %+v", alerts[0])
	}
}

func TestCompleteIsIdempotentForAlerts(t *testing.T) {
	tracker := newStrictTracker()

	marker := tracker.StartOperation("stop_session", "sess-1")
	time.Sleep(time.Millisecond)
	marker.Complete()
	marker.Complete()

	if got := len(tracker.RecentAlerts()); got != 1 {
		t.Errorf("RecentAlerts() returned %d alerts after double Complete, want 1", got)
	}
}

func TestFastOperationRaisesNoAlert(t *testing.T) {
	tracker := NewTracker()

	marker := tracker.StartOperation("heartbeat", "sess-1")
	marker.Complete()

	if got := len(tracker.RecentAlerts()); got != 0 {
		t.Errorf("RecentAlerts() returned %d alerts, want 0", got)
	}
}
