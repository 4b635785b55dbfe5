package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/meethub/internal/metrics"
)

// DefaultAbandonTimeout is how long a ticket may stay PENDING before the
// sweeper removes it.
const DefaultAbandonTimeout = 30 * time.Minute

// Sweeper deletes tickets that never left PENDING.
type Sweeper struct {
	tickets AbandonedTicketDeleter
	timeout time.Duration
	now     func() time.Time
	log     *logrus.Logger
}

type SweeperOption func(*Sweeper)

// WithAbandonTimeout overrides DefaultAbandonTimeout.
func WithAbandonTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSweeper(tickets AbandonedTicketDeleter, log *logrus.Logger, opts ...SweeperOption) *Sweeper {
	if tickets == nil {
		panic("nil dependency passed to NewSweeper")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Sweeper{tickets: tickets, timeout: DefaultAbandonTimeout, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepAbandonedTickets deletes PENDING tickets created before now minus
// the abandonment timeout and returns how many were removed. The delete is
// conditional on PENDING, so a ticket made terminal concurrently survives.
func (s *Sweeper) SweepAbandonedTickets(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := s.now().UTC().Add(-s.timeout)
	n, err := s.tickets.DeleteAbandoned(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("sweeping abandoned tickets failed")
		return 0, fmt.Errorf("delete abandoned tickets: %w", err)
	}
	metrics.Sweep(n, time.Since(start))
	entry := s.log.WithFields(logrus.Fields{"deleted": n, "cutoff": cutoff.Format(time.RFC3339)})
	if n > 0 {
		entry.Info("abandoned tickets swept")
	} else {
		entry.Debug("no abandoned tickets")
	}
	return n, nil
}

// Run sweeps every interval until ctx is cancelled. Errors are logged and
// the next tick tries again.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = s.SweepAbandonedTickets(ctx)
		}
	}
}
