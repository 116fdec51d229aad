package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"homeloan-paywall/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

type noopOrder struct {
	status   adapter.OrderStatus
	payments []adapter.OrderPayment
}

// NoopPaymentGateway is an in-memory gateway for local runs and tests.
// Orders start ACTIVE; MarkPaid simulates the customer completing checkout.
type NoopPaymentGateway struct {
	mu     sync.Mutex
	seq    int64
	orders map[string]*noopOrder
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{orders: make(map[string]*noopOrder)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.CreatedOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.orders[req.OrderID]; ok {
		return nil, fmt.Errorf("noop: order %s already exists", req.OrderID)
	}
	g.seq++
	cfID := fmt.Sprintf("%d", 1000+g.seq)
	g.orders[req.OrderID] = &noopOrder{status: adapter.OrderStatus{
		OrderID:       req.OrderID,
		CFOrderID:     cfID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        adapter.OrderStatusActive,
		CustomerEmail: req.Customer.Email,
	}}
	return &adapter.CreatedOrder{
		OrderID:          req.OrderID,
		CFOrderID:        cfID,
		PaymentSessionID: "session_noop_" + cfID,
		Status:           adapter.OrderStatusActive,
	}, nil
}

func (g *NoopPaymentGateway) FetchOrder(ctx context.Context, orderID string) (*adapter.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("noop: order %s not found", orderID)
	}
	st := o.status
	return &st, nil
}

func (g *NoopPaymentGateway) FetchPayments(ctx context.Context, orderID string) ([]adapter.OrderPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("noop: order %s not found", orderID)
	}
	return append([]adapter.OrderPayment(nil), o.payments...), nil
}

// MarkPaid flips the order to PAID with a successful payment of the given amount.
func (g *NoopPaymentGateway) MarkPaid(orderID string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("noop: order %s not found", orderID)
	}
	o.status.Status = adapter.OrderStatusPaid
	o.status.Amount = amount
	o.payments = append(o.payments, adapter.OrderPayment{
		CFPaymentID: "pay_" + o.status.CFOrderID,
		Status:      adapter.PaymentStatusSuccess,
		Amount:      amount,
		Method:      "upi",
	})
	return nil
}
