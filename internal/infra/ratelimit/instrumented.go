package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/infra/logging"
	"homeloan-paywall/internal/infra/metrics"
)

var _ adapter.RateLimiter = (*Instrumented)(nil)

// Instrumented records limiter decisions and lets requests through when the
// backend fails. It never returns an error.
type Instrumented struct {
	inner adapter.RateLimiter
	log   *zerolog.Logger
}

func NewInstrumented(inner adapter.RateLimiter, logger *zerolog.Logger) *Instrumented {
	l := logger.With().Str("component", "ratelimit").Logger()
	return &Instrumented{inner: inner, log: &l}
}

func (i *Instrumented) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	policy := adapter.PolicyName(key)
	ok, err := i.inner.Allow(ctx, key, limit, window)
	if err != nil {
		metrics.IncRateLimitError(policy)
		logging.With(ctx, i.log).Warn().Err(err).Str("policy", policy).Msg("rate limiter unavailable; allowing request")
		return true, nil
	}
	if !ok {
		metrics.IncRateLimited(policy)
	}
	return ok, nil
}
