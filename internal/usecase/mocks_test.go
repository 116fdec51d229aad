//go:build !integration

package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Mock PaymentGateway ---

type MockPaymentGateway struct {
	CreateOrderFunc   func(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.CreatedOrder, error)
	FetchOrderFunc    func(ctx context.Context, orderID string) (*adapter.OrderStatus, error)
	FetchPaymentsFunc func(ctx context.Context, orderID string) ([]adapter.OrderPayment, error)

	mu         sync.Mutex
	fetchCalls int
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.CreatedOrder, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return &adapter.CreatedOrder{OrderID: req.OrderID, PaymentSessionID: "session_" + req.OrderID, Status: adapter.OrderStatusActive}, nil
}

func (m *MockPaymentGateway) FetchOrder(ctx context.Context, orderID string) (*adapter.OrderStatus, error) {
	m.mu.Lock()
	m.fetchCalls++
	m.mu.Unlock()
	if m.FetchOrderFunc != nil {
		return m.FetchOrderFunc(ctx, orderID)
	}
	return nil, io.ErrUnexpectedEOF
}

func (m *MockPaymentGateway) FetchPayments(ctx context.Context, orderID string) ([]adapter.OrderPayment, error) {
	if m.FetchPaymentsFunc != nil {
		return m.FetchPaymentsFunc(ctx, orderID)
	}
	return nil, nil
}

func (m *MockPaymentGateway) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// --- Mock SubscriptionRepository ---

type MockSubscriptionRepo struct {
	UpsertFunc       func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByEmailFunc  func(ctx context.Context, tx repository.Tx, email string) (*model.Subscription, error)
	CountByStateFunc func(ctx context.Context, tx repository.Tx, activeSince time.Time) (int, int, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	return m.UpsertFunc(ctx, tx, s)
}

func (m *MockSubscriptionRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Subscription, error) {
	return m.FindByEmailFunc(ctx, tx, email)
}

func (m *MockSubscriptionRepo) CountByState(ctx context.Context, tx repository.Tx, activeSince time.Time) (int, int, error) {
	return m.CountByStateFunc(ctx, tx, activeSince)
}

// --- Mock RateLimiter ---

type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	mu   sync.Mutex
	keys []string
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	m.keys = append(m.keys, key)
	m.mu.Unlock()
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

func (m *MockRateLimiter) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}
