// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/domain/ports/repository"
	"homeloan-paywall/internal/infra/logging"
	"homeloan-paywall/internal/infra/payment"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// EventPaymentSuccess is the only webhook event type that can grant access.
const EventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type ReconcileUseCase interface {
	// VerifyOrder is the pull path: the buyer's browser returned from checkout with orderID.
	VerifyOrder(ctx context.Context, p *model.Principal, clientKey, orderID string) (*model.Outcome, error)
	// HandleWebhook is the push path: a signed server-to-server notification.
	HandleWebhook(ctx context.Context, req WebhookRequest) (*model.Outcome, error)
}

// WebhookRequest carries the raw body exactly as received; it is only decoded after the signature checks out.
type WebhookRequest struct {
	ClientKey string
	Signature string
	Timestamp string
	RawBody   []byte
}

type ReconcileSettings struct {
	ExpectedAmount decimal.Decimal
	Currency       string
	Tolerance      decimal.Decimal
	WebhookSecret  string
	ReplayWindow   time.Duration
	GatewayTimeout time.Duration
}

type ReconcilePolicies struct {
	OrderVerify adapter.RateLimitPolicy
	Webhook     adapter.RateLimitPolicy
}

// reconcileInput is what both entry points hand to reconcile once they have
// authenticated the caller.
type reconcileInput struct {
	OrderID string
	Source  model.Source
	// ClaimedEmail is the principal (pull) or the webhook customer_email (push).
	ClaimedEmail  string
	HintPaymentID string
}

type webhookCustomer struct {
	CustomerEmail string `json:"customer_email"`
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID         string          `json:"order_id"`
			CustomerDetails webhookCustomer `json:"customer_details"`
		} `json:"order"`
		Payment struct {
			CFPaymentID json.RawMessage `json:"cf_payment_id"`
		} `json:"payment"`
		CustomerDetails webhookCustomer `json:"customer_details"`
	} `json:"data"`
}

// customerEmail accepts customer_details at the data level or nested in the order.
func (p *webhookPayload) customerEmail() string {
	if e := strings.TrimSpace(p.Data.CustomerDetails.CustomerEmail); e != "" {
		return e
	}
	return strings.TrimSpace(p.Data.Order.CustomerDetails.CustomerEmail)
}

type reconcileUC struct {
	tm       repository.TransactionManager
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	gateway  adapter.PaymentGateway
	limiter  adapter.RateLimiter
	policies ReconcilePolicies
	settings ReconcileSettings
	clock    clock.Clock
	log      *zerolog.Logger
	dev      bool
}

func NewReconcileUseCase(
	tm repository.TransactionManager,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	gateway adapter.PaymentGateway,
	limiter adapter.RateLimiter,
	policies ReconcilePolicies,
	settings ReconcileSettings,
	clk clock.Clock,
	logger *zerolog.Logger,
	dev bool,
) *reconcileUC {
	if clk == nil {
		clk = clock.Real()
	}
	if settings.Tolerance.IsZero() {
		settings.Tolerance = decimal.New(1, -2)
	}
	if settings.ReplayWindow <= 0 {
		settings.ReplayWindow = 300 * time.Second
	}
	if settings.GatewayTimeout <= 0 {
		settings.GatewayTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "reconcile_uc").Logger()
	return &reconcileUC{
		tm:       tm,
		payments: payments,
		subs:     subs,
		gateway:  gateway,
		limiter:  limiter,
		policies: policies,
		settings: settings,
		clock:    clk,
		log:      &l,
		dev:      dev,
	}
}

func (u *reconcileUC) VerifyOrder(ctx context.Context, p *model.Principal, clientKey, orderID string) (*model.Outcome, error) {
	if p == nil || p.Email == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := allow(ctx, u.limiter, u.policies.OrderVerify, clientKey); err != nil {
		return nil, err
	}
	if !orderIDPattern.MatchString(orderID) {
		return nil, fmt.Errorf("%w: order id", domain.ErrInvalidInput)
	}

	ctx = logging.WithSource(logging.WithOrderID(ctx, orderID), string(model.SourcePull))
	defer logging.TraceDuration(logging.With(ctx, u.log), "ReconcileUC.VerifyOrder")()

	stored, err := u.findPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if !stored.OwnedBy(p.Email) {
			u.warn(ctx, "order owned by another user", p.Email)
			return nil, domain.ErrForbidden
		}
		return model.OutcomeFromPayment(stored, true), nil
	}

	return u.reconcile(ctx, reconcileInput{OrderID: orderID, Source: model.SourcePull, ClaimedEmail: p.Email})
}

func (u *reconcileUC) HandleWebhook(ctx context.Context, req WebhookRequest) (*model.Outcome, error) {
	if err := allow(ctx, u.limiter, u.policies.Webhook, req.ClientKey); err != nil {
		return nil, err
	}
	if req.Signature == "" || req.Timestamp == "" {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, payment.ErrMissingSignature)
	}
	if !payment.Verify(u.settings.WebhookSecret, req.Timestamp, req.RawBody, req.Signature) {
		logging.With(ctx, u.log).Warn().Str("client", req.ClientKey).Msg("webhook signature mismatch")
		return nil, fmt.Errorf("%w: bad signature", domain.ErrUnauthorized)
	}
	if err := payment.CheckFreshness(req.Timestamp, u.clock.Now(), u.settings.ReplayWindow); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("timestamp", req.Timestamp).Msg("webhook rejected")
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	var body webhookPayload
	if err := json.Unmarshal(req.RawBody, &body); err != nil {
		return nil, fmt.Errorf("%w: webhook body: %v", domain.ErrInvalidInput, err)
	}
	if body.Type != EventPaymentSuccess {
		logging.With(ctx, u.log).Debug().Str("type", body.Type).Msg("webhook event ignored")
		return &model.Outcome{Success: true, Ignored: true, Message: "event ignored"}, nil
	}

	orderID := strings.TrimSpace(body.Data.Order.OrderID)
	if !orderIDPattern.MatchString(orderID) {
		return nil, fmt.Errorf("%w: order id", domain.ErrInvalidInput)
	}
	ctx = logging.WithSource(logging.WithOrderID(ctx, orderID), string(model.SourcePush))

	stored, err := u.findPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		out := model.OutcomeFromPayment(stored, true)
		out.Message = "already processed"
		return out, nil
	}

	return u.reconcile(ctx, reconcileInput{
		OrderID:       orderID,
		Source:        model.SourcePush,
		ClaimedEmail:  body.customerEmail(),
		HintPaymentID: rawID(body.Data.Payment.CFPaymentID),
	})
}

// reconcile asks the gateway for the authoritative order state and commits it when paid.
func (u *reconcileUC) reconcile(ctx context.Context, in reconcileInput) (*model.Outcome, error) {
	log := logging.With(ctx, u.log)

	gctx, cancel := context.WithTimeout(ctx, u.settings.GatewayTimeout)
	defer cancel()
	order, err := u.gateway.FetchOrder(gctx, in.OrderID)
	if err != nil {
		log.Error().Err(err).Msg("gateway fetch order failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	owner := model.NormalizeEmail(order.CustomerEmail)
	switch in.Source {
	case model.SourcePull:
		if !model.SameEmail(owner, in.ClaimedEmail) {
			u.warn(ctx, "order owned by another user", in.ClaimedEmail)
			return nil, domain.ErrForbidden
		}
	case model.SourcePush:
		if owner == "" {
			log.Error().Msg("gateway order has no customer email")
			return nil, fmt.Errorf("%w: order has no owner", domain.ErrInvalidInput)
		}
		if in.ClaimedEmail != "" && !model.SameEmail(owner, in.ClaimedEmail) {
			u.warn(ctx, "webhook customer does not match gateway order", in.ClaimedEmail)
			return nil, fmt.Errorf("%w: customer mismatch", domain.ErrUnauthorized)
		}
	}

	if order.Status != adapter.OrderStatusPaid {
		log.Info().Str("gateway_status", order.Status).Msg("order not paid yet")
		return &model.Outcome{
			Success:       false,
			OrderID:       in.OrderID,
			Status:        order.Status,
			GatewayStatus: order.Status,
			Message:       "payment not completed",
		}, nil
	}

	paymentID := u.successfulPaymentID(gctx, in.OrderID)
	if paymentID == "" {
		paymentID = in.HintPaymentID
	}
	if paymentID == "" {
		paymentID = order.CFOrderID
	}

	return u.commit(ctx, in.OrderID, order, owner, paymentID, in.Source)
}

// commit checks the amount, then writes the payment and the subscription in one transaction.
// Losing the insert race is a success that returns the winner's row.
func (u *reconcileUC) commit(ctx context.Context, orderID string, order *adapter.OrderStatus, owner, paymentID string, source model.Source) (*model.Outcome, error) {
	log := logging.With(ctx, u.log)

	if order.Amount.Sub(u.settings.ExpectedAmount).Abs().GreaterThan(u.settings.Tolerance) {
		log.Warn().
			Str("amount", order.Amount.String()).
			Str("expected", u.settings.ExpectedAmount.String()).
			Msg("paid amount does not match price")
		return nil, domain.ErrInvalidAmount
	}
	if order.Currency != "" && !strings.EqualFold(order.Currency, u.settings.Currency) {
		log.Warn().Str("currency", order.Currency).Msg("paid currency does not match price")
		return nil, domain.ErrInvalidAmount
	}

	now := u.clock.Now()
	p, err := model.NewCompletedPayment(orderID, owner, paymentID, order.Amount, u.settings.Currency, source, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var out *model.Outcome
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		inserted, err := u.payments.Insert(ctx, tx, p)
		if errors.Is(err, domain.ErrAlreadyExists) {
			inserted, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if !inserted {
			stored, err := u.payments.FindByOrderID(ctx, tx, p.OrderID)
			if err != nil {
				return fmt.Errorf("load stored payment: %w", err)
			}
			out = model.OutcomeFromPayment(stored, true)
			return nil
		}

		sub, err := model.NewPaidSubscription(owner, now)
		if err != nil {
			return err
		}
		if err := u.subs.Upsert(ctx, tx, sub); err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}
		out = model.OutcomeFromPayment(p, false)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("commit failed; nothing written")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if out.AlreadyDone {
		log.Info().Msg("order already reconciled by the other path")
	} else {
		log.Info().
			Str("email", logging.RedactEmail(owner, u.dev)).
			Str("amount", p.Amount.StringFixed(2)).
			Msg("payment committed; access granted")
	}
	return out, nil
}

func (u *reconcileUC) findPayment(ctx context.Context, orderID string) (*model.Payment, error) {
	p, err := u.payments.FindByOrderID(ctx, repository.NoTX, orderID)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, domain.ErrNotFound):
		return nil, nil
	default:
		logging.With(ctx, u.log).Error().Err(err).Msg("payment lookup failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
}

// successfulPaymentID returns the gateway's id for the order's successful payment, or "".
func (u *reconcileUC) successfulPaymentID(ctx context.Context, orderID string) string {
	pays, err := u.gateway.FetchPayments(ctx, orderID)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("gateway fetch payments failed; using fallback payment id")
		return ""
	}
	for _, p := range pays {
		if p.Status == adapter.PaymentStatusSuccess && p.CFPaymentID != "" {
			return p.CFPaymentID
		}
	}
	return ""
}

func (u *reconcileUC) warn(ctx context.Context, msg, email string) {
	logging.With(ctx, u.log).Warn().Str("claimed_email", logging.RedactEmail(email, u.dev)).Msg(msg)
}

// rawID accepts an id sent as a JSON string or number.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}
