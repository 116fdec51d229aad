package adapter

import (
	"context"
	"strings"
	"time"
)

// RateLimiter is a fixed-window counter keyed by an opaque client key.
// Allow counts the call even when it is rejected.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitPolicy is a named limit applied per client key.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Key namespaces the client key so one endpoint's budget does not drain another's.
func (p RateLimitPolicy) Key(clientKey string) string {
	return p.Name + ":" + clientKey
}

// PolicyName recovers the policy name from a key built by Key.
func PolicyName(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
