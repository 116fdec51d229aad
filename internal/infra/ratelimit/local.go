package ratelimit

import (
	"context"
	"sync"
	"time"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*Local)(nil)

type window struct {
	count   int
	resetAt time.Time
}

// Local is a per-process fixed-window limiter. Counters are lost on restart
// and are not shared between replicas.
type Local struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string]*window
}

func NewLocal(c clock.Clock) *Local {
	if c == nil {
		c = clock.Real()
	}
	return &Local{clock: c, windows: make(map[string]*window)}
}

func (l *Local) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(win)}
		return limit >= 1, nil
	}
	w.count++
	return w.count <= limit, nil
}

// Sweep drops windows that have already reset and returns how many were removed.
func (l *Local) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}

func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
