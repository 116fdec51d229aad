package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/infra/metrics"
)

// Sweeper drops fixed windows that have already ended.
type Sweeper interface {
	Sweep(now time.Time) int
	Len() int
}

// SweepWorker keeps the in-process rate limiter from growing without bound.
type SweepWorker struct {
	interval time.Duration
	target   Sweeper
	clock    clock.Clock
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, target Sweeper, clk clock.Clock, logger *zerolog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if clk == nil {
		clk = clock.Real()
	}
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{interval: interval, target: target, clock: clk, log: &l}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting rate limit sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping rate limit sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *SweepWorker) tick() {
	if n := w.target.Sweep(w.clock.Now()); n > 0 {
		w.log.Debug().Int("removed", n).Msg("expired rate limit windows removed")
	}
	metrics.SetRateLimitWindows(w.target.Len())
}
