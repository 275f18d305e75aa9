// Package messaging defines the real-time broadcast hub for dashboard
// observers and its websocket plumbing.
package messaging

import (
	"github.com/gingerol/examguard/internal/domain/events"
	"github.com/gingerol/examguard/internal/infrastructure/security"
)

// Broadcaster is the hub seam the rest of the system publishes through.
// All components produce typed events; only the hub touches the transport.
type Broadcaster interface {
	Subscribe(credential string) (*Observer, error)
	Unsubscribe(observer *Observer)
	Publish(evt events.Event)
	ObserverCount() int
}

// Authorizer validates a dashboard credential and resolves its identity.
// Only elevated roles are admitted to the room.
type Authorizer interface {
	AuthorizeObserver(credential string) (*security.Identity, error)
}
