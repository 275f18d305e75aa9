package registry

import (
	"context"
	"time"

	"github.com/gingerol/examguard/internal/infrastructure/observability/logging"
	"github.com/gingerol/examguard/internal/infrastructure/security"
)

func newAlertID() string {
	return security.GenerateULID()
}

// Sweeper is the background worker that evicts sessions whose heartbeat has
// gone stale and prunes terminated tombstones.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	logger   *logging.ChanneledLogger
}

// NewSweeper creates a sweeper for the given registry.
func NewSweeper(registry *Registry, interval time.Duration, logger *logging.ChanneledLogger) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop. Blocks until the context is cancelled;
// run it as a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.logger != nil {
		s.logger.Session().Info("Heartbeat sweeper started", "interval", s.interval)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Shutdown().Info("Heartbeat sweeper stopping")
			}
			return
		case <-ticker.C:
			s.registry.ExpireStale(time.Now().UTC())
		}
	}
}
