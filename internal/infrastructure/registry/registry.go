// Package registry owns the authoritative in-memory map of active
// monitoring sessions. It enforces one-active-session-per-participant,
// serializes all mutations per session id, and is the single component
// allowed to transition session lifecycle state.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/gingerol/examguard/internal/domain/events"
	"github.com/gingerol/examguard/internal/domain/proctoring"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
)

// Publisher is the broadcast hub seam. Publish must never block the caller.
type Publisher interface {
	Publish(evt events.Event)
}

// AlertSink is the append-only alert log seam. Append must be durable
// before it returns nil.
type AlertSink interface {
	Append(ctx context.Context, alert *proctoring.Alert) error
}

// session pairs one session's state with its own mutex. The registry mutex
// protects the maps; state is only ever touched under the session mutex.
// Lock order is always registry.mu before session.mu, never the reverse.
type session struct {
	mu    sync.Mutex
	state proctoring.SessionState
	// endedAt is set when the session reaches a terminal state, so the
	// sweeper can prune tombstones after the retention window.
	endedAt time.Time
}

// Registry is the in-memory session store. Callers receive value snapshots
// of SessionState; the mutable records never leave this package.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[string]*session
	byParticipant map[string]string // participantID -> active sessionID

	alerts    AlertSink
	publisher Publisher
	logger    *logging.ChanneledLogger

	heartbeatTimeout    time.Duration
	terminatedRetention time.Duration
}

// Options carries the tunables the registry sweeps with.
type Options struct {
	HeartbeatTimeout    time.Duration
	TerminatedRetention time.Duration
}

// New creates a session registry wired to its alert sink and publisher.
func New(alerts AlertSink, publisher Publisher, logger *logging.ChanneledLogger, opts Options) *Registry {
	if logger != nil {
		logger.Session().Info("Initializing session registry",
			"heartbeatTimeout", opts.HeartbeatTimeout,
			"terminatedRetention", opts.TerminatedRetention)
	}
	return &Registry{
		sessions:            make(map[string]*session),
		byParticipant:       make(map[string]string),
		alerts:              alerts,
		publisher:           publisher,
		logger:              logger,
		heartbeatTimeout:    opts.HeartbeatTimeout,
		terminatedRetention: opts.TerminatedRetention,
	}
}

// Start creates a new ACTIVE session for the participant. If the participant
// already owns an ACTIVE session, that session is atomically superseded and
// its SessionEnded event is published before the new SessionStarted.
// Calling Start again with the same still-ACTIVE session id is an idempotent
// refresh: the heartbeat clock resets and no duplicate events fire.
func (r *Registry) Start(participantID, sessionID string) (proctoring.SessionState, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok {
		existing.mu.Lock()
		defer existing.mu.Unlock()

		if existing.state.Status != proctoring.StatusActive {
			return proctoring.SessionState{}, proctoring.ErrSessionTerminated
		}
		if existing.state.ParticipantID != participantID {
			return proctoring.SessionState{}, proctoring.ErrSessionIDInUse
		}

		// Client retry of start: refresh, don't break anomaly tracking.
		existing.state.LastHeartbeatAt = now
		if r.logger != nil {
			r.logger.Session().Debug("Start refreshed existing active session",
				"sessionId", sessionID, "participantId", participantID)
		}
		return existing.state, nil
	}

	if oldID, ok := r.byParticipant[participantID]; ok {
		r.endLocked(oldID, proctoring.StatusSuperseded, proctoring.EndReasonSuperseded, now)
	}

	sess := &session{state: proctoring.SessionState{
		SessionID:       sessionID,
		ParticipantID:   participantID,
		Status:          proctoring.StatusActive,
		StartedAt:       now,
		LastHeartbeatAt: now,
		LatestStatus:    proctoring.StatusTextAttentive,
	}}
	r.sessions[sessionID] = sess
	r.byParticipant[participantID] = sessionID

	if r.logger != nil {
		r.logger.Session().Info("Session started",
			"sessionId", sessionID, "participantId", participantID)
	}
	if r.publisher != nil {
		r.publisher.Publish(events.NewSessionStarted(sess.state))
	}
	return sess.state, nil
}

// Heartbeat refreshes the liveness clock of an ACTIVE session.
func (r *Registry) Heartbeat(sessionID string) (proctoring.SessionState, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Status != proctoring.StatusActive {
		return proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}
	sess.state.LastHeartbeatAt = time.Now().UTC()
	return sess.state, nil
}

// RecordFinding applies one classified sample to an ACTIVE session as a
// single atomic unit: status text, snapshot ref, and — when an alert intent
// is present — the durable alert append, unread counter and last-alert
// summary, all under the session lock. A concurrent heartbeat or second
// finding observes either the fully-old or fully-new state. The finalized
// alert (nil when no alert fired) and the updated snapshot are returned;
// NewAlert and SessionUpdate are published in that order.
func (r *Registry) RecordFinding(ctx context.Context, sessionID string, finding *proctoring.Finding, intent *proctoring.AlertIntent) (*proctoring.Alert, proctoring.SessionState, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Status != proctoring.StatusActive {
		return nil, proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	var alert *proctoring.Alert
	if intent != nil {
		alert = &proctoring.Alert{
			AlertID:       newAlertID(),
			SessionID:     sessionID,
			ParticipantID: sess.state.ParticipantID,
			TriggeredAt:   finding.ObservedAt,
			AlertType:     intent.AlertType,
			Severity:      intent.Severity,
			Message:       intent.Message,
			SnapshotRef:   intent.SnapshotRef,
		}
		// Durability first: if the append fails the sample has no effect.
		if err := r.alerts.Append(ctx, alert); err != nil {
			if r.logger != nil {
				r.logger.Session().Error("Alert append failed, finding dropped",
					"sessionId", sessionID, "alertType", intent.AlertType, "error", err.Error())
			}
			return nil, proctoring.SessionState{}, err
		}
	}

	sess.state.LatestStatus = finding.StatusText()
	if finding.SnapshotRef != "" {
		sess.state.LatestSnapshotRef = finding.SnapshotRef
	}
	if alert != nil {
		sess.state.UnreadAlertCount++
		sess.state.LastAlertType = alert.AlertType
		t := alert.TriggeredAt
		sess.state.LastAlertAt = &t
	}

	if r.publisher != nil {
		if alert != nil {
			r.publisher.Publish(events.NewAlertEvent(alert))
		}
		r.publisher.Publish(events.NewSessionUpdate(sess.state))
	}
	return alert, sess.state, nil
}

// ResetUnread clears the unread alert counter after an acknowledgment and
// publishes the refreshed session snapshot. Terminal sessions are left
// untouched; acknowledging their alerts only flips the persisted flag.
func (r *Registry) ResetUnread(sessionID string) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state.Status != proctoring.StatusActive || sess.state.UnreadAlertCount == 0 {
		return
	}
	sess.state.UnreadAlertCount = 0
	if r.publisher != nil {
		r.publisher.Publish(events.NewSessionUpdate(sess.state))
	}
}

// Stop transitions an ACTIVE session to STOPPED. Only the session owner may
// stop it.
func (r *Registry) Stop(sessionID, requesterParticipantID string) (proctoring.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	sess.mu.Lock()
	owner := sess.state.ParticipantID
	status := sess.state.Status
	sess.mu.Unlock()

	if owner != requesterParticipantID {
		return proctoring.SessionState{}, proctoring.ErrUnauthorized
	}
	if status != proctoring.StatusActive {
		return proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	snapshot := r.endLocked(sessionID, proctoring.StatusStopped, proctoring.EndReasonExplicitStop, time.Now().UTC())
	return snapshot, nil
}

// Get returns a snapshot of any known session, including terminal ones.
func (r *Registry) Get(sessionID string) (proctoring.SessionState, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return proctoring.SessionState{}, proctoring.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, nil
}

// ActiveSessions returns snapshots of every ACTIVE session.
func (r *Registry) ActiveSessions() []proctoring.SessionState {
	r.mu.RLock()
	all := make([]*session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	r.mu.RUnlock()

	states := make([]proctoring.SessionState, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		if sess.state.Status == proctoring.StatusActive {
			states = append(states, sess.state)
		}
		sess.mu.Unlock()
	}
	return states
}

// ActiveCount reports the number of ACTIVE sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParticipant)
}

// ExpireStale transitions ACTIVE sessions with a heartbeat older than the
// configured timeout to EXPIRED, and prunes terminal tombstones past the
// retention window. Returns the number of sessions expired.
func (r *Registry) ExpireStale(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for id, sess := range r.sessions {
		sess.mu.Lock()
		switch {
		case sess.state.Status == proctoring.StatusActive &&
			r.heartbeatTimeout > 0 &&
			now.Sub(sess.state.LastHeartbeatAt) > r.heartbeatTimeout:
			sess.mu.Unlock()
			r.endLocked(id, proctoring.StatusExpired, proctoring.EndReasonHeartbeatTimeout, now)
			expired++
		case sess.state.Status.Terminal() &&
			r.terminatedRetention > 0 &&
			now.Sub(sess.endedAt) > r.terminatedRetention:
			sess.mu.Unlock()
			delete(r.sessions, id)
		default:
			sess.mu.Unlock()
		}
	}

	if expired > 0 && r.logger != nil {
		r.logger.Session().Info("Expired stale sessions", "count", expired)
	}
	return expired
}

// endLocked terminates a session and publishes its SessionEnded event.
// Caller must hold r.mu.
func (r *Registry) endLocked(sessionID string, status proctoring.SessionStatus, reason proctoring.EndReason, now time.Time) proctoring.SessionState {
	sess, ok := r.sessions[sessionID]
	if !ok {
		return proctoring.SessionState{}
	}

	sess.mu.Lock()
	sess.state.Status = status
	sess.endedAt = now
	snapshot := sess.state
	sess.mu.Unlock()

	if r.byParticipant[snapshot.ParticipantID] == sessionID {
		delete(r.byParticipant, snapshot.ParticipantID)
	}

	if r.logger != nil {
		r.logger.Session().Info("Session ended",
			"sessionId", sessionID, "participantId", snapshot.ParticipantID, "reason", reason)
	}
	if r.publisher != nil {
		r.publisher.Publish(events.NewSessionEnded(snapshot, reason))
	}
	return snapshot
}
