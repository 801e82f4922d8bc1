// Package sweeper cancels bookings whose advance payment never arrived, so
// their slots return to the pool.
package sweeper

import (
	"context"
	"errors"
	"time"

	"turfbook/pkg/logger"
)

const DefaultBatchSize = 100

// Expirer is the part of the booking service the sweeper drives. Each call
// scans all stale bookings batch at a time.
type Expirer interface {
	ExpirePending(ctx context.Context, olderThan time.Duration, batch int) (int, error)
}

type Sweeper struct {
	expirer  Expirer
	ttl      time.Duration
	interval time.Duration
	batch    int
	log      *logger.Logger
}

func New(expirer Expirer, ttl, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		ttl:      ttl,
		interval: interval,
		batch:    DefaultBatchSize,
		log:      log,
	}
}

// SweepOnce runs one expiry scan over every stale booking and returns how
// many were expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	return s.expirer.ExpirePending(ctx, s.ttl, s.batch)
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("Pending booking sweeper started", "ttl", s.ttl.String(), "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		n, err := s.SweepOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			s.log.Error("Sweep failed", "expired", n, "error", err)
		case n > 0:
			s.log.Info("Expired stale pending bookings", "expired", n)
		}

		select {
		case <-ctx.Done():
			s.log.Info("Pending booking sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
