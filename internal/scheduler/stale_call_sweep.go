package scheduler

import (
	"context"
	"time"

	"fixline_backend/internal/callagent"
	"fixline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultStaleCallSweepInterval = time.Hour
	defaultStaleCallAge           = 2 * time.Hour
)

// StaleCallSweep periodically closes call records that started but never
// received an outcome, usually because the bridge process died mid-call.
type StaleCallSweep struct {
	repo     *callagent.Repository
	log      *logger.Logger
	interval time.Duration
	maxAge   time.Duration
}

func NewStaleCallSweep(pool *pgxpool.Pool, log *logger.Logger, interval, maxAge time.Duration) *StaleCallSweep {
	if interval <= 0 {
		interval = defaultStaleCallSweepInterval
	}
	if maxAge <= 0 {
		maxAge = defaultStaleCallAge
	}

	return &StaleCallSweep{
		repo:     callagent.NewRepository(pool),
		log:      log,
		interval: interval,
		maxAge:   maxAge,
	}
}

func (s *StaleCallSweep) Run(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *StaleCallSweep) sweep(ctx context.Context) {
	closed, err := s.repo.SweepStale(ctx, time.Now().Add(-s.maxAge))
	if err != nil {
		s.log.Warn("stale call sweep failed", "error", err)
		return
	}

	if closed > 0 {
		s.log.Info("stale call sweep closed dangling calls", "closed", closed)
	}
}
