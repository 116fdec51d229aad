//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/domain/ports/repository"
	"homeloan-paywall/internal/infra/db/memory"
)

var entitlementPolicy = adapter.RateLimitPolicy{Name: "entitlement", Limit: 60, Window: time.Minute}

func TestEntitlementUseCase_HasAccess(t *testing.T) {
	ctx := context.Background()
	granted := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	store := memory.NewStore()
	paid, _ := model.NewPaidSubscription("paid@example.com", granted)
	_ = store.Subscriptions().Upsert(ctx, nil, paid)
	_ = store.Subscriptions().Upsert(ctx, nil, &model.Subscription{Email: "unpaid@example.com", IsPaid: false, AccessGrantedAt: granted, UpdatedAt: granted})

	fc := clock.NewFakeClock(granted)
	uc := NewEntitlementUseCase(store.Subscriptions(), []string{" Admin@Example.com "}, 0, nil, entitlementPolicy, fc, newTestLogger(), false)

	cases := []struct {
		name  string
		email string
		at    time.Time
		want  bool
	}{
		{"admin without a row", "admin@example.com", granted, true},
		{"admin case-insensitive", "ADMIN@example.com", granted, true},
		{"no row", "nobody@example.com", granted, false},
		{"unpaid row", "unpaid@example.com", granted, false},
		{"empty email", "", granted, false},
		{"day 364", "paid@example.com", granted.Add(364 * day), true},
		{"mixed case email", "Paid@Example.COM", granted.Add(364 * day), true},
		{"exactly 365 days", "paid@example.com", granted.Add(365 * day), false},
		{"day 366", "paid@example.com", granted.Add(366 * day), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc.Set(tc.at)
			if got := uc.HasAccess(ctx, tc.email); got != tc.want {
				t.Fatalf("HasAccess(%q) = %v, want %v", tc.email, got, tc.want)
			}
		})
	}
}

func TestEntitlementUseCase_LookupErrorDenies(t *testing.T) {
	subs := &MockSubscriptionRepo{FindByEmailFunc: func(ctx context.Context, tx repository.Tx, email string) (*model.Subscription, error) {
		return nil, domain.ErrOperationFailed
	}}
	uc := NewEntitlementUseCase(subs, nil, 0, nil, entitlementPolicy, nil, newTestLogger(), false)
	if uc.HasAccess(context.Background(), "paid@example.com") {
		t.Fatal("a failing store must deny access")
	}
}

func TestEntitlementUseCase_Check(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	sub, _ := model.NewPaidSubscription(reader.Email, now.Add(-time.Hour))
	_ = store.Subscriptions().Upsert(ctx, nil, sub)

	t.Run("own email and empty email", func(t *testing.T) {
		uc := NewEntitlementUseCase(store.Subscriptions(), nil, 0, nil, entitlementPolicy, clock.NewFakeClock(now), newTestLogger(), false)
		for _, email := range []string{"", "READER@example.com"} {
			ok, err := uc.Check(ctx, reader, "k", email)
			if err != nil || !ok {
				t.Fatalf("Check(%q) = %v, %v", email, ok, err)
			}
		}
	})

	t.Run("other user's email is forbidden", func(t *testing.T) {
		uc := NewEntitlementUseCase(store.Subscriptions(), nil, 0, nil, entitlementPolicy, clock.NewFakeClock(now), newTestLogger(), false)
		if _, err := uc.Check(ctx, &model.Principal{Email: "someone@example.com"}, "k", reader.Email); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		uc := NewEntitlementUseCase(store.Subscriptions(), nil, 0, nil, entitlementPolicy, clock.NewFakeClock(now), newTestLogger(), false)
		if _, err := uc.Check(ctx, nil, "k", ""); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		rl := &MockRateLimiter{AllowFunc: func(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
			return false, nil
		}}
		uc := NewEntitlementUseCase(store.Subscriptions(), nil, 0, rl, entitlementPolicy, clock.NewFakeClock(now), newTestLogger(), false)
		if _, err := uc.Check(ctx, reader, "198.51.100.1", ""); !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if keys := rl.Keys(); len(keys) != 1 || keys[0] != "entitlement:198.51.100.1" {
			t.Fatalf("unexpected limiter keys %v", keys)
		}
	})
}

func TestEntitlementUseCase_Stats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	for email, grantedAt := range map[string]time.Time{
		"a@example.com": now.Add(-24 * time.Hour),
		"b@example.com": now.Add(-100 * 24 * time.Hour),
		"c@example.com": now.Add(-400 * 24 * time.Hour),
	} {
		s, _ := model.NewPaidSubscription(email, grantedAt)
		_ = store.Subscriptions().Upsert(ctx, nil, s)
	}

	uc := NewEntitlementUseCase(store.Subscriptions(), nil, 0, nil, entitlementPolicy, clock.NewFakeClock(now), newTestLogger(), false)
	active, lapsed, err := uc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active != 2 || lapsed != 1 {
		t.Fatalf("Stats = %d active, %d lapsed; want 2, 1", active, lapsed)
	}
}
