package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/domain/ports/usecase"
	"homeloan-paywall/internal/infra/metrics"
)

// PoolStatsFunc reports connection pool gauges; nil when the store has no pool.
type PoolStatsFunc func() (total, idle, acquired, max int32)

// StatsWorker periodically publishes subscription counts and pool gauges.
type StatsWorker struct {
	interval time.Duration
	stats    usecase.SubscriptionStats
	pool     PoolStatsFunc
	log      *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, stats usecase.SubscriptionStats, pool PoolStatsFunc, logger *zerolog.Logger) *StatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "StatsWorker").Logger()
	return &StatsWorker{
		interval: interval,
		stats:    stats,
		pool:     pool,
		log:      &l,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stats worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *StatsWorker) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	active, lapsed, err := w.stats.Stats(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("subscription stats failed")
	} else {
		metrics.SetSubscriptions(active, lapsed)
	}
	if w.pool != nil {
		metrics.SetDBPoolStats(w.pool())
	}
}
