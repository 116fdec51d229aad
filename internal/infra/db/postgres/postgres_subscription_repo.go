package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if s == nil || s.Email == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (email, is_paid, access_granted_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET
  is_paid = EXCLUDED.is_paid,
  access_granted_at = EXCLUDED.access_granted_at,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q, model.NormalizeEmail(s.Email), s.IsPaid, s.AccessGrantedAt, s.UpdatedAt)
	return mapWriteErr(err)
}

func (r *subscriptionRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Subscription, error) {
	const q = `SELECT email, is_paid, access_granted_at, updated_at FROM subscriptions WHERE email = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	var s model.Subscription
	if err := row.Scan(&s.Email, &s.IsPaid, &s.AccessGrantedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *subscriptionRepo) CountByState(ctx context.Context, tx repository.Tx, activeSince time.Time) (int, int, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE access_granted_at > $1),
  COUNT(*) FILTER (WHERE access_granted_at <= $1)
FROM subscriptions WHERE is_paid;`

	row, err := pickRow(ctx, r.pool, tx, q, activeSince)
	if err != nil {
		return 0, 0, err
	}
	var active, lapsed int
	if err := row.Scan(&active, &lapsed); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return active, lapsed, nil
}
