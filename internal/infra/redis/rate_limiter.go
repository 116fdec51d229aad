package redis

import (
	"context"
	"time"

	"homeloan-paywall/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// RateLimiter shares fixed-window counters across replicas.
type RateLimiter struct {
	client RedisClient
	prefix string
}

func NewRateLimiter(client RedisClient, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.IncrWindow(ctx, r.prefix+key, window)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}
