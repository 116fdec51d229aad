package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPaid     = "PAID"
	OrderStatusActive   = "ACTIVE"
	OrderStatusExpired  = "EXPIRED"
	PaymentStatusSuccess = "SUCCESS"
)

type Customer struct {
	ID    string
	Email string
	Name  string
	Phone string
}

type CreateOrderRequest struct {
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Customer  Customer
	ReturnURL string
	NotifyURL string
	Note      string
}

type CreatedOrder struct {
	OrderID          string
	CFOrderID        string
	PaymentSessionID string
	Status           string
}

// OrderStatus is the gateway's authoritative view of an order.
type OrderStatus struct {
	OrderID       string
	CFOrderID     string
	Amount        decimal.Decimal
	Currency      string
	Status        string
	CustomerEmail string
}

type OrderPayment struct {
	CFPaymentID string
	Status      string
	Amount      decimal.Decimal
	Method      string
}

// PaymentGateway is the hex port for the hosted-checkout provider.
type PaymentGateway interface {
	Name() string

	// CreateOrder registers an order and returns the session id the checkout UI needs.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error)
	// FetchOrder returns the gateway's current view of the order.
	FetchOrder(ctx context.Context, orderID string) (*OrderStatus, error)
	// FetchPayments lists payment attempts made against the order.
	FetchPayments(ctx context.Context, orderID string) ([]OrderPayment, error)
}
