package repository

import (
	"context"

	"homeloan-paywall/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Insert writes p unless a row for p.OrderID already exists.
	// inserted is false when the order was already recorded; that is not an error.
	Insert(ctx context.Context, tx Tx, p *model.Payment) (inserted bool, err error)
	// FindByOrderID returns domain.ErrNotFound when no row exists.
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
}
