// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/domain/ports/repository"
	"homeloan-paywall/internal/infra/logging"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

type EntitlementUseCase interface {
	// HasAccess never fails: lookup errors are logged and deny access.
	HasAccess(ctx context.Context, email string) bool
	// Check is the HTTP entry: rate limited, and callers may only ask about themselves.
	// An empty email means the caller's own.
	Check(ctx context.Context, p *model.Principal, clientKey, email string) (bool, error)
	// Stats counts paid subscriptions that are inside and outside the access window.
	Stats(ctx context.Context) (active, lapsed int, err error)
}

type entitlementUC struct {
	subs    repository.SubscriptionRepository
	admins  map[string]struct{}
	window  time.Duration
	limiter adapter.RateLimiter
	policy  adapter.RateLimitPolicy
	clock   clock.Clock
	log     *zerolog.Logger
	dev     bool
}

func NewEntitlementUseCase(
	subs repository.SubscriptionRepository,
	adminEmails []string,
	window time.Duration,
	limiter adapter.RateLimiter,
	policy adapter.RateLimitPolicy,
	clk clock.Clock,
	logger *zerolog.Logger,
	dev bool,
) *entitlementUC {
	if clk == nil {
		clk = clock.Real()
	}
	if window <= 0 {
		window = model.DefaultAccessWindow
	}
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = model.NormalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	l := logger.With().Str("component", "entitlement_uc").Logger()
	return &entitlementUC{
		subs:    subs,
		admins:  admins,
		window:  window,
		limiter: limiter,
		policy:  policy,
		clock:   clk,
		log:     &l,
		dev:     dev,
	}
}

func (u *entitlementUC) HasAccess(ctx context.Context, email string) bool {
	email = model.NormalizeEmail(email)
	if email == "" {
		return false
	}
	if _, ok := u.admins[email]; ok {
		return true
	}

	sub, err := u.subs.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, u.log).Error().Err(err).
				Str("email", logging.RedactEmail(email, u.dev)).
				Msg("subscription lookup failed; denying access")
		}
		return false
	}
	return sub.ActiveAt(u.clock.Now(), u.window)
}

func (u *entitlementUC) Check(ctx context.Context, p *model.Principal, clientKey, email string) (bool, error) {
	if p == nil || p.Email == "" {
		return false, domain.ErrUnauthenticated
	}
	if err := allow(ctx, u.limiter, u.policy, clientKey); err != nil {
		return false, err
	}
	if strings.TrimSpace(email) == "" {
		email = p.Email
	}
	if !model.SameEmail(email, p.Email) {
		return false, domain.ErrForbidden
	}
	return u.HasAccess(ctx, email), nil
}

func (u *entitlementUC) Stats(ctx context.Context) (int, int, error) {
	return u.subs.CountByState(ctx, repository.NoTX, u.clock.Now().Add(-u.window))
}
