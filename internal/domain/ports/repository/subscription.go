package repository

import (
	"context"
	"time"

	"homeloan-paywall/internal/domain/model"
)

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	// Upsert is keyed by email; an existing row is overwritten.
	Upsert(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Subscription, error)
	// CountByState splits paid rows by whether access was granted strictly after activeSince.
	CountByState(ctx context.Context, tx Tx, activeSince time.Time) (active, lapsed int, err error)
}
