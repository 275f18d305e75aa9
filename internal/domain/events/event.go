// Package events defines the typed broadcast events pushed to dashboard
// observers. Producers build these; only the broadcast hub touches the wire.
package events

import (
	"time"

	"github.com/gingerol/examguard/internal/domain/proctoring"
)

// Type discriminates broadcast payloads on the wire.
type Type string

const (
	TypeSessionStarted Type = "session_started"
	TypeSessionUpdate  Type = "session_update"
	TypeNewAlert       Type = "new_alert"
	TypeSessionEnded   Type = "session_ended"
)

// Event is the envelope fanned out to every subscribed observer.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// SessionStarted announces a newly ACTIVE session.
type SessionStarted struct {
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	StartedAt     time.Time `json:"startedAt"`
}

// SessionUpdate carries the per-sample dashboard refresh for one session.
type SessionUpdate struct {
	SessionID        string               `json:"sessionId"`
	ParticipantID    string               `json:"participantId"`
	LatestStatus     string               `json:"latestStatus"`
	SnapshotRef      string               `json:"snapshotRef,omitempty"`
	UnreadAlertCount int                  `json:"unreadAlertCount"`
	LastAlertType    proctoring.AlertType `json:"lastAlertType,omitempty"`
	LastAlertAt      *time.Time           `json:"lastAlertAt,omitempty"`
}

// NewAlert carries a freshly persisted alert.
type NewAlert struct {
	Alert *proctoring.Alert `json:"alert"`
}

// SessionEnded announces a session leaving the ACTIVE state.
type SessionEnded struct {
	SessionID     string               `json:"sessionId"`
	ParticipantID string               `json:"participantId"`
	Reason        proctoring.EndReason `json:"reason"`
}

// NewSessionStarted builds the start event from a state snapshot.
func NewSessionStarted(s proctoring.SessionState) Event {
	return Event{Type: TypeSessionStarted, Payload: SessionStarted{
		SessionID:     s.SessionID,
		ParticipantID: s.ParticipantID,
		StartedAt:     s.StartedAt,
	}}
}

// NewSessionUpdate builds the per-sample update event from a state snapshot.
func NewSessionUpdate(s proctoring.SessionState) Event {
	return Event{Type: TypeSessionUpdate, Payload: SessionUpdate{
		SessionID:        s.SessionID,
		ParticipantID:    s.ParticipantID,
		LatestStatus:     s.LatestStatus,
		SnapshotRef:      s.LatestSnapshotRef,
		UnreadAlertCount: s.UnreadAlertCount,
		LastAlertType:    s.LastAlertType,
		LastAlertAt:      s.LastAlertAt,
	}}
}

// NewAlertEvent wraps a persisted alert for broadcast.
func NewAlertEvent(a *proctoring.Alert) Event {
	return Event{Type: TypeNewAlert, Payload: NewAlert{Alert: a}}
}

// NewSessionEnded builds the end event for a terminated session.
func NewSessionEnded(s proctoring.SessionState, reason proctoring.EndReason) Event {
	return Event{Type: TypeSessionEnded, Payload: SessionEnded{
		SessionID:     s.SessionID,
		ParticipantID: s.ParticipantID,
		Reason:        reason,
	}}
}
