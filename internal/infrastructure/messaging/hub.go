package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gingerol/examguard/internal/domain/events"
	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/security"
)

// connectionAck is the first frame every admitted observer receives.
type connectionAck struct {
	ObserverID  string    `json:"observerId"`
	Role        string    `json:"role"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Observer is one live dashboard connection admitted to the room.
type Observer struct {
	ID          string
	Role        string
	ConnectedAt time.Time

	// send is the bounded outbound queue. The hub never blocks on it:
	// when full, the oldest queued frame is dropped (lossy delivery).
	send chan []byte

	// dropped counts frames discarded for this observer.
	dropped int
}

// Outbound exposes the observer's outbound queue to the write pump.
func (o *Observer) Outbound() <-chan []byte { return o.send }

// Hub maintains the single dashboard room and fans events out to every
// subscribed observer. Publication order is preserved across observers:
// the room mutex serializes publishes, and each observer's queue is FIFO.
type Hub struct {
	room   map[*Observer]bool
	mu     sync.Mutex
	auth   Authorizer
	logger *logging.ChanneledLogger

	sendBuffer int
}

// NewHub creates the broadcast hub.
func NewHub(auth Authorizer, sendBuffer int, logger *logging.ChanneledLogger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if logger != nil {
		logger.Broadcast().Info("Initializing broadcast hub", "sendBuffer", sendBuffer)
	}
	return &Hub{
		room:       make(map[*Observer]bool),
		auth:       auth,
		logger:     logger,
		sendBuffer: sendBuffer,
	}
}

// Subscribe validates the credential and, for elevated roles, admits a new
// observer to the room. The ConnectionAck frame is queued before any
// subsequent event so the client always sees it first. Rejected credentials
// return an error and the connection is never admitted.
func (h *Hub) Subscribe(credential string) (*Observer, error) {
	identity, err := h.auth.AuthorizeObserver(credential)
	if err != nil {
		if h.logger != nil {
			h.logger.Broadcast().Warn("Observer subscribe rejected", "error", err.Error())
		}
		return nil, err
	}

	observer := &Observer{
		ID:          security.GenerateULID(),
		Role:        identity.Role,
		ConnectedAt: time.Now().UTC(),
		send:        make(chan []byte, h.sendBuffer),
	}

	ack, _ := json.Marshal(map[string]any{
		"type": "connection_ack",
		"payload": connectionAck{
			ObserverID:  observer.ID,
			Role:        observer.Role,
			ConnectedAt: observer.ConnectedAt,
		},
	})

	h.mu.Lock()
	h.room[observer] = true
	observer.send <- ack
	count := len(h.room)
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Broadcast().Info("Observer subscribed",
			"observerId", observer.ID, "role", observer.Role, "roomSize", count)
	}
	return observer, nil
}

// Unsubscribe removes an observer from the room and closes its queue.
// Idempotent: unknown or already-removed observers are a no-op.
func (h *Hub) Unsubscribe(observer *Observer) {
	if observer == nil {
		return
	}

	h.mu.Lock()
	if _, ok := h.room[observer]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.room, observer)
	close(observer.send)
	count := len(h.room)
	dropped := observer.dropped
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Broadcast().Info("Observer unsubscribed",
			"observerId", observer.ID, "roomSize", count, "droppedFrames", dropped)
	}
}

// Publish fans the event out to every observer subscribed at publish time.
// Delivery is best-effort and non-blocking per observer: a saturated queue
// sheds its oldest frame rather than stalling the publisher or the other
// observers.
func (h *Hub) Publish(evt events.Event) {
	defer func() {
		if r := recover(); r != nil && h.logger != nil {
			h.logger.Broadcast().Error("Panic recovered in Publish", "error", r)
		}
	}()

	message, err := json.Marshal(evt)
	if err != nil {
		if h.logger != nil {
			h.logger.Broadcast().Error("Event marshal failed", "type", evt.Type, "error", err.Error())
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for observer := range h.room {
		select {
		case observer.send <- message:
		default:
			// Queue saturated: drop the oldest frame to make room.
			select {
			case <-observer.send:
				observer.dropped++
			default:
			}
			select {
			case observer.send <- message:
			default:
				observer.dropped++
			}
			if h.logger != nil {
				h.logger.Broadcast().Warn("Observer queue saturated, oldest frame dropped",
					"observerId", observer.ID, "type", evt.Type)
			}
		}
	}
}

// ObserverCount returns the current room size.
func (h *Hub) ObserverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.room)
}
