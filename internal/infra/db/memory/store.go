// Package memory is a process-local entitlement store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/repository"
)

var (
	_ repository.TransactionManager     = (*Store)(nil)
	_ repository.PaymentRepository      = (*PaymentRepo)(nil)
	_ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)
)

// Store holds both tables behind one mutex so a transaction can cover them together.
type Store struct {
	mu       sync.Mutex
	payments map[string]model.Payment
	subs     map[string]model.Subscription
}

func NewStore() *Store {
	return &Store{
		payments: make(map[string]model.Payment),
		subs:     make(map[string]model.Subscription),
	}
}

// txHandle marks calls made inside WithTx; the mutex is already held.
type txHandle struct{ s *Store }

// WithTx serializes fn against all other store access and restores both
// tables when fn fails. fn must not block on I/O.
func (s *Store) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments := make(map[string]model.Payment, len(s.payments))
	for k, v := range s.payments {
		payments[k] = v
	}
	subs := make(map[string]model.Subscription, len(s.subs))
	for k, v := range s.subs {
		subs[k] = v
	}

	if err := fn(ctx, &txHandle{s: s}); err != nil {
		s.payments, s.subs = payments, subs
		return err
	}
	return nil
}

// lock acquires the mutex unless tx shows it is already held by this store.
func (s *Store) lock(tx repository.Tx) (unlock func(), err error) {
	switch h := tx.(type) {
	case nil:
		s.mu.Lock()
		return s.mu.Unlock, nil
	case *txHandle:
		if h.s != s {
			return nil, domain.ErrInvalidExecContext
		}
		return func() {}, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func (s *Store) Payments() *PaymentRepo { return &PaymentRepo{s: s} }

func (s *Store) Subscriptions() *SubscriptionRepo { return &SubscriptionRepo{s: s} }

type PaymentRepo struct{ s *Store }

func (r *PaymentRepo) Insert(_ context.Context, tx repository.Tx, p *model.Payment) (bool, error) {
	if p == nil || p.OrderID == "" {
		return false, domain.ErrInvalidArgument
	}
	unlock, err := r.s.lock(tx)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, ok := r.s.payments[p.OrderID]; ok {
		return false, nil
	}
	row := *p
	if p.PaymentID != nil {
		id := *p.PaymentID
		row.PaymentID = &id
	}
	r.s.payments[p.OrderID] = row
	return true, nil
}

func (r *PaymentRepo) FindByOrderID(_ context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	unlock, err := r.s.lock(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	row, ok := r.s.payments[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if row.PaymentID != nil {
		id := *row.PaymentID
		row.PaymentID = &id
	}
	return &row, nil
}

type SubscriptionRepo struct{ s *Store }

func (r *SubscriptionRepo) Upsert(_ context.Context, tx repository.Tx, sub *model.Subscription) error {
	if sub == nil || sub.Email == "" {
		return domain.ErrInvalidArgument
	}
	unlock, err := r.s.lock(tx)
	if err != nil {
		return err
	}
	defer unlock()

	row := *sub
	row.Email = model.NormalizeEmail(sub.Email)
	r.s.subs[row.Email] = row
	return nil
}

func (r *SubscriptionRepo) FindByEmail(_ context.Context, tx repository.Tx, email string) (*model.Subscription, error) {
	unlock, err := r.s.lock(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	row, ok := r.s.subs[model.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (r *SubscriptionRepo) CountByState(_ context.Context, tx repository.Tx, activeSince time.Time) (int, int, error) {
	unlock, err := r.s.lock(tx)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()

	var active, lapsed int
	for _, s := range r.s.subs {
		if !s.IsPaid {
			continue
		}
		if s.AccessGrantedAt.After(activeSince) {
			active++
		} else {
			lapsed++
		}
	}
	return active, lapsed, nil
}
