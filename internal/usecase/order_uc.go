// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/infra/logging"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

type OrderUseCase interface {
	// CreateOrder registers a fixed-price order with the gateway for p.
	// Nothing is persisted; the ledger only learns about the order once it is paid.
	CreateOrder(ctx context.Context, p *model.Principal, clientKey string) (*CreatedOrder, error)
}

type CreatedOrder struct {
	OrderID          string
	PaymentSessionID string
}

// OrderSettings are the server-side order terms. Clients never supply the amount.
type OrderSettings struct {
	Amount        decimal.Decimal
	Currency      string
	ReturnURL     string
	NotifyURL     string
	CustomerPhone string
	Note          string
}

type orderUC struct {
	gateway  adapter.PaymentGateway
	limiter  adapter.RateLimiter
	policy   adapter.RateLimitPolicy
	settings OrderSettings
	clock    clock.Clock
	entropy  *ulid.LockedMonotonicReader
	log      *zerolog.Logger
	dev      bool
}

func NewOrderUseCase(
	gateway adapter.PaymentGateway,
	limiter adapter.RateLimiter,
	policy adapter.RateLimitPolicy,
	settings OrderSettings,
	clk clock.Clock,
	logger *zerolog.Logger,
	dev bool,
) *orderUC {
	if clk == nil {
		clk = clock.Real()
	}
	l := logger.With().Str("component", "order_uc").Logger()
	return &orderUC{
		gateway:  gateway,
		limiter:  limiter,
		policy:   policy,
		settings: settings,
		clock:    clk,
		entropy:  &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)},
		log:      &l,
		dev:      dev,
	}
}

func (u *orderUC) CreateOrder(ctx context.Context, p *model.Principal, clientKey string) (*CreatedOrder, error) {
	if p == nil || p.Email == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := allow(ctx, u.limiter, u.policy, clientKey); err != nil {
		return nil, err
	}

	orderID, err := u.newOrderID()
	if err != nil {
		return nil, fmt.Errorf("order id: %w", err)
	}
	ctx = logging.WithOrderID(ctx, orderID)
	log := logging.With(ctx, u.log)

	created, err := u.gateway.CreateOrder(ctx, adapter.CreateOrderRequest{
		OrderID:  orderID,
		Amount:   u.settings.Amount,
		Currency: u.settings.Currency,
		Customer: adapter.Customer{
			ID:    customerID(p.Email),
			Email: p.Email,
			Name:  p.Name,
			Phone: u.settings.CustomerPhone,
		},
		ReturnURL: u.settings.ReturnURL,
		NotifyURL: u.settings.NotifyURL,
		Note:      u.settings.Note,
	})
	if err != nil {
		log.Error().Err(err).Str("gateway", u.gateway.Name()).Msg("gateway create order failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	log.Info().
		Str("email", logging.RedactEmail(p.Email, u.dev)).
		Str("amount", u.settings.Amount.StringFixed(2)).
		Msg("order created")
	return &CreatedOrder{OrderID: orderID, PaymentSessionID: created.PaymentSessionID}, nil
}

// newOrderID is "order_" + a ULID: millisecond timestamp plus 80 bits of crypto/rand entropy.
func (u *orderUC) newOrderID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(u.clock.Now()), u.entropy)
	if err != nil {
		return "", err
	}
	return "order_" + id.String(), nil
}

// customerID is a stable gateway customer id that does not expose the email.
func customerID(email string) string {
	sum := sha256.Sum256([]byte(model.NormalizeEmail(email)))
	return "cust_" + hex.EncodeToString(sum[:8])
}
