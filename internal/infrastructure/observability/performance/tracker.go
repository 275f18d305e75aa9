package performance

import (
	"strings"
	"sync"
	"time"
)

// Tracker manages performance markers and threshold alerts
type Tracker struct {
	markers    []*Marker
	alerts     []*Alert
	thresholds *Thresholds
	mu         sync.RWMutex
	started    time.Time
	maxMarkers int
	maxAlerts  int
}

// AlertLevel grades a performance alert
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert records an operation that exceeded a threshold
type Alert struct {
	Level     AlertLevel    `json:"level"`
	Operation string        `json:"operation"`
	Duration  time.Duration `json:"duration"`
	Message   string        `json:"message"`
	At        time.Time     `json:"at"`
}

// Thresholds defines duration limits for generating alerts
type Thresholds struct {
	SlowResponse     time.Duration
	CriticalResponse time.Duration
	AuthOperation    time.Duration
	PublishOperation time.Duration
	DatabaseQuery    time.Duration
}

// DefaultThresholds returns sensible default alert thresholds
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		SlowResponse:     500 * time.Millisecond,
		CriticalResponse: 5 * time.Second,
		AuthOperation:    200 * time.Millisecond,
		PublishOperation: 50 * time.Millisecond,
		DatabaseQuery:    50 * time.Millisecond,
	}
}

// NewTracker creates a new performance tracker
func NewTracker() *Tracker {
	return &Tracker{
		markers:    make([]*Marker, 0),
		alerts:     make([]*Alert, 0),
		thresholds: DefaultThresholds(),
		started:    time.Now(),
		maxMarkers: 10000,
		maxAlerts:  500,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, sessionID string) *Marker {
	marker := &Marker{
		Operation: operation,
		SessionID: sessionID,
		StartTime: time.Now(),
		Success:   true,
		tracker:   t,
	}

	t.mu.Lock()
	t.markers = append(t.markers, marker)
	if len(t.markers) > t.maxMarkers {
		t.markers = t.markers[len(t.markers)-t.maxMarkers:]
	}
	t.mu.Unlock()

	return marker
}

func (t *Tracker) checkForAlerts(marker *Marker) {
	var alerts []*Alert

	if marker.Duration > t.thresholds.CriticalResponse {
		alerts = append(alerts, t.newAlert(marker, AlertCritical, "Operation exceeded critical response time threshold"))
	} else if marker.Duration > t.thresholds.SlowResponse {
		alerts = append(alerts, t.newAlert(marker, AlertWarning, "Operation exceeded slow response time threshold"))
	}

	switch {
	case strings.Contains(marker.Operation, "auth"):
		if marker.Duration > t.thresholds.AuthOperation {
			alerts = append(alerts, t.newAlert(marker, AlertWarning, "Authentication operation exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "publish"):
		if marker.Duration > t.thresholds.PublishOperation {
			alerts = append(alerts, t.newAlert(marker, AlertWarning, "Broadcast publish exceeded threshold"))
		}
	case strings.Contains(marker.Operation, "query"), strings.Contains(marker.Operation, "append"):
		if marker.Duration > t.thresholds.DatabaseQuery {
			alerts = append(alerts, t.newAlert(marker, AlertWarning, "Database operation exceeded threshold"))
		}
	}

	if len(alerts) == 0 {
		return
	}

	t.mu.Lock()
	t.alerts = append(t.alerts, alerts...)
	if len(t.alerts) > t.maxAlerts {
		t.alerts = t.alerts[len(t.alerts)-t.maxAlerts:]
	}
	t.mu.Unlock()
}

func (t *Tracker) newAlert(marker *Marker, level AlertLevel, message string) *Alert {
	return &Alert{
		Level:     level,
		Operation: marker.Operation,
		Duration:  marker.Duration,
		Message:   message,
		At:        time.Now(),
	}
}

// RecentAlerts returns a copy of the retained performance alerts.
func (t *Tracker) RecentAlerts() []*Alert {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Alert, len(t.alerts))
	copy(out, t.alerts)
	return out
}

// Uptime reports how long the tracker has been running.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
