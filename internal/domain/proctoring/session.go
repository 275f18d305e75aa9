// Package proctoring provides the domain entities for exam monitoring:
// session state, per-sample findings, alerts, and the classification rules
// that turn one into the other.
package proctoring

import "time"

// SessionStatus is the lifecycle state of a monitoring session.
type SessionStatus string

const (
	StatusActive     SessionStatus = "ACTIVE"
	StatusSuperseded SessionStatus = "SUPERSEDED"
	StatusStopped    SessionStatus = "STOPPED"
	StatusExpired    SessionStatus = "EXPIRED"
)

// Terminal reports whether the status is final. A terminated session id is
// never reactivated.
func (s SessionStatus) Terminal() bool {
	return s == StatusSuperseded || s == StatusStopped || s == StatusExpired
}

// EndReason explains why a session left the ACTIVE state.
type EndReason string

const (
	EndReasonSuperseded       EndReason = "superseded"
	EndReasonExplicitStop     EndReason = "explicit_stop"
	EndReasonHeartbeatTimeout EndReason = "heartbeat_timeout"
)

// Dashboard-facing status strings for the most recent sample.
const (
	StatusTextAttentive     = "Attentive"
	StatusTextNoFace        = "No Face Detected"
	StatusTextMultipleFaces = "Multiple Faces Detected"
	StatusTextLoudNoise     = "Loud Noise Detected"
)

// SessionState is one active (or recently terminated) monitoring session.
// Values handed to callers are copies; the registry owns the mutable record.
type SessionState struct {
	SessionID         string        `json:"sessionId"`
	ParticipantID     string        `json:"participantId"`
	Status            SessionStatus `json:"status"`
	StartedAt         time.Time     `json:"startedAt"`
	LastHeartbeatAt   time.Time     `json:"lastHeartbeatAt"`
	LatestStatus      string        `json:"latestStatus"`
	LatestSnapshotRef string        `json:"latestSnapshotRef,omitempty"`
	UnreadAlertCount  int           `json:"unreadAlertCount"`
	LastAlertType     AlertType     `json:"lastAlertType,omitempty"`
	LastAlertAt       *time.Time    `json:"lastAlertAt,omitempty"`
}
