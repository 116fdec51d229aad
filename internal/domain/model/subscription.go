package model

import (
	"time"

	"homeloan-paywall/internal/domain"
)

// DefaultAccessWindow is how long a single payment unlocks premium content.
const DefaultAccessWindow = 365 * 24 * time.Hour

// Subscription is the per-user projection of the latest successful payment.
type Subscription struct {
	Email           string
	IsPaid          bool
	AccessGrantedAt time.Time
	UpdatedAt       time.Time
}

// NewPaidSubscription creates the row upserted on every successful commit.
// A later payment replaces AccessGrantedAt; windows never stack.
func NewPaidSubscription(email string, grantedAt time.Time) (*Subscription, error) {
	if email == "" || grantedAt.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		Email:           NormalizeEmail(email),
		IsPaid:          true,
		AccessGrantedAt: grantedAt,
		UpdatedAt:       grantedAt,
	}, nil
}

func (s *Subscription) ExpiresAt(window time.Duration) time.Time {
	return s.AccessGrantedAt.Add(window)
}

// ActiveAt is the entitlement rule: paid and strictly before expiry.
func (s *Subscription) ActiveAt(now time.Time, window time.Duration) bool {
	if s == nil || !s.IsPaid {
		return false
	}
	return now.Before(s.ExpiresAt(window))
}
