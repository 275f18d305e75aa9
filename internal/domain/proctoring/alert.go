package proctoring

import "time"

// AlertType identifies the anomaly category of a persisted alert.
type AlertType string

const (
	AlertNoFace        AlertType = "no_face_detected"
	AlertMultipleFaces AlertType = "multiple_faces_detected"
	AlertLookingAway   AlertType = "looking_away"
	AlertLoudNoise     AlertType = "loud_noise_detected"
)

// Severity ranks alerts for the dashboard and escalation policy.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Alert is a persisted record of an anomaly detected from a Finding. Alerts
// are append-only; only the Acknowledged flag is ever mutated, and only by
// an explicit acknowledgment.
type Alert struct {
	AlertID       string    `json:"alertId"`
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	TriggeredAt   time.Time `json:"triggeredAt"`
	AlertType     AlertType `json:"alertType"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	SnapshotRef   string    `json:"snapshotRef,omitempty"`
	Acknowledged  bool      `json:"acknowledged"`
}

// AlertIntent is the classifier's decision for one sample, before the
// registry assigns an id and timestamps it against session state.
type AlertIntent struct {
	AlertType   AlertType
	Severity    Severity
	Message     string
	SnapshotRef string
}
