package model

import (
	"time"

	"github.com/shopspring/decimal"

	"homeloan-paywall/internal/domain"
)

type PaymentStatus string

const (
	// PaymentStatusCompleted is the only status ever written; incomplete orders leave no row.
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Source tags which notification path reached the commit step.
type Source string

const (
	SourcePull Source = "pull" // browser returned from the hosted checkout
	SourcePush Source = "push" // gateway webhook
)

// Payment is the ledger entry for a reconciled order. OrderID is the idempotency key.
type Payment struct {
	OrderID   string
	Email     string
	PaymentID *string // gateway transaction id, nil when the gateway did not report one
	Amount    decimal.Decimal
	Currency  string
	Status    PaymentStatus
	Source    Source
	CreatedAt time.Time
}

// NewCompletedPayment builds the row written by a successful commit.
func NewCompletedPayment(orderID, email, paymentID string, amount decimal.Decimal, currency string, source Source, now time.Time) (*Payment, error) {
	if orderID == "" || email == "" || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	p := &Payment{
		OrderID:   orderID,
		Email:     NormalizeEmail(email),
		Amount:    amount.Round(2),
		Currency:  currency,
		Status:    PaymentStatusCompleted,
		Source:    source,
		CreatedAt: now,
	}
	if paymentID != "" {
		p.PaymentID = &paymentID
	}
	return p, nil
}

// OwnedBy reports whether email is the owner of the payment.
func (p *Payment) OwnedBy(email string) bool {
	return p != nil && SameEmail(p.Email, email)
}
