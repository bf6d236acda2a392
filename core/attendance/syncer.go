package attendance

import (
	"context"
	"time"

	"github.com/trezcool/rollcall/core"
)

// Flusher replays queued writes.
type Flusher interface {
	Flush(ctx context.Context) (FlushResult, error)
}

// Syncer flushes the queue periodically and on demand.
type Syncer struct {
	flusher  Flusher
	interval time.Duration
	logger   core.Logger
	trigger  chan struct{}
}

func NewSyncer(flusher Flusher, interval time.Duration, logger core.Logger) *Syncer {
	return &Syncer{
		flusher:  flusher,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger asks for a flush as soon as possible. Requests made while one is
// already waiting are merged into it.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run flushes once at start, then on every tick and trigger, until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.flush(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.flush(ctx)
		case <-s.trigger:
			s.flush(ctx)
		}
	}
}

func (s *Syncer) flush(ctx context.Context) {
	res, err := s.flusher.Flush(ctx)
	switch {
	case err != nil:
		s.logger.Error("flushing attendance queue", err)
	case res.Halted:
		s.logger.Warn("attendance queue flush halted", map[string]interface{}{
			"sent": len(res.Succeeded), "remaining": res.Remaining, "error": res.LastError,
		})
	case res.Attempted > 0:
		s.logger.Debug("attendance queue flushed", map[string]interface{}{"sent": len(res.Succeeded)})
	}
}
