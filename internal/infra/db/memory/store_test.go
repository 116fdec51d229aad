//go:build !integration

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/repository"
)

func newPayment(t *testing.T, orderID, email string) *model.Payment {
	t.Helper()
	p, err := model.NewCompletedPayment(orderID, email, "cf_1", decimal.NewFromInt(999), "INR", model.SourcePull, time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	return p
}

func TestPaymentRepo_InsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Payments()

	ok, err := repo.Insert(ctx, nil, newPayment(t, "order_1", "a@example.com"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Insert(ctx, nil, newPayment(t, "order_1", "b@example.com"))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByOrderID(ctx, nil, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = repo.FindByOrderID(ctx, nil, "order_2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Payments()
	_, _ = repo.Insert(ctx, nil, newPayment(t, "order_1", "a@example.com"))

	got, _ := repo.FindByOrderID(ctx, nil, "order_1")
	*got.PaymentID = "mutated"
	got.Email = "mutated"

	again, _ := repo.FindByOrderID(ctx, nil, "order_1")
	assert.Equal(t, "cf_1", *again.PaymentID)
	assert.Equal(t, "a@example.com", again.Email)
}

func TestStore_WithTxRollsBackBothTables(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := s.Payments().Insert(ctx, tx, newPayment(t, "order_1", "a@example.com")); err != nil {
			return err
		}
		sub, _ := model.NewPaidSubscription("a@example.com", time.Now())
		if err := s.Subscriptions().Upsert(ctx, tx, sub); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Payments().FindByOrderID(ctx, nil, "order_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Subscriptions().FindByEmail(ctx, nil, "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, err := s.Payments().Insert(ctx, tx, newPayment(t, "order_1", "a@example.com"))
		return err
	})
	require.NoError(t, err)

	_, err = s.Payments().FindByOrderID(ctx, nil, "order_1")
	assert.NoError(t, err)
}

func TestStore_ForeignHandleRejected(t *testing.T) {
	ctx := context.Background()
	a, b := NewStore(), NewStore()
	err := a.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, err := b.Payments().FindByOrderID(ctx, tx, "x")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidExecContext)
}

func TestSubscriptionRepo_UpsertAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Subscriptions()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 365 * 24 * time.Hour

	old, _ := model.NewPaidSubscription("A@Example.com", now.Add(-366*24*time.Hour))
	require.NoError(t, repo.Upsert(ctx, nil, old))
	fresh, _ := model.NewPaidSubscription("b@example.com", now.Add(-24*time.Hour))
	require.NoError(t, repo.Upsert(ctx, nil, fresh))

	active, lapsed, err := repo.CountByState(ctx, nil, now.Add(-window))
	require.NoError(t, err)
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, lapsed)

	renewed, _ := model.NewPaidSubscription("a@example.com", now)
	require.NoError(t, repo.Upsert(ctx, nil, renewed))
	got, err := repo.FindByEmail(ctx, nil, "a@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, got.AccessGrantedAt.Equal(now))
}

func TestStore_ConcurrentInsertsOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
				ok, err := s.Payments().Insert(ctx, tx, newPayment(t, "order_1", "a@example.com"))
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
				return err
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}
