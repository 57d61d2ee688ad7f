package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"barorder/entity"
)

// Sweeper cancels orders stuck in pending beyond the grace period, acting
// as the system actor. Losing a race against a vendor confirming at the
// same moment is fine; the versioned commit picks exactly one winner.
type Sweeper struct {
	svc      *OrderLifecycleService
	interval time.Duration
	grace    time.Duration
	lg       *slog.Logger
}

func NewSweeper(svc *OrderLifecycleService, interval, grace time.Duration, lg *slog.Logger) *Sweeper {
	if lg == nil {
		lg = slog.Default()
	}
	return &Sweeper{svc: svc, interval: interval, grace: grace, lg: lg}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Exported so tests and operational tooling can
// trigger it directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.grace)
	stale, err := s.svc.store.ListStalePending(ctx, cutoff)
	if err != nil {
		s.lg.Error("sweep query failed", "err", err)
		return
	}
	for _, o := range stale {
		_, err := s.svc.RequestTransition(ctx, o.ID, entity.StatusCancelled, entity.ActorSystem, "not confirmed in time")
		switch {
		case err == nil:
			s.lg.Info("stale order cancelled", "order", o.ID)
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrentModification):
			// someone moved the order meanwhile; nothing to do
		default:
			s.lg.Error("sweep cancel failed", "order", o.ID, "err", err)
		}
	}
}
