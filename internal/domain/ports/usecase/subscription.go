package usecase

import "context"

// SubscriptionStats is what background workers need from the entitlement side.
type SubscriptionStats interface {
	Stats(ctx context.Context) (active, lapsed int, err error)
}
