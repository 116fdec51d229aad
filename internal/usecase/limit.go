package usecase

import (
	"context"

	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/ports/adapter"
)

// allow applies p to clientKey. A nil limiter or a disabled policy lets every request
// through, and so does a limiter error.
func allow(ctx context.Context, rl adapter.RateLimiter, p adapter.RateLimitPolicy, clientKey string) error {
	if rl == nil || p.Limit <= 0 {
		return nil
	}
	ok, err := rl.Allow(ctx, p.Key(clientKey), p.Limit, p.Window)
	if err != nil {
		return nil
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}
