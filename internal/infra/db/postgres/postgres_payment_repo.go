package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"homeloan-paywall/internal/domain"
	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.Payment) (bool, error) {
	if p == nil || p.OrderID == "" {
		return false, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO payments (order_id, email, payment_id, amount, currency, status, source, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
ON CONFLICT (order_id) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		p.OrderID, p.Email, p.PaymentID, p.Amount.StringFixed(2), p.Currency, string(p.Status), string(p.Source), p.CreatedAt)
	if err != nil {
		// the order is already recorded
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, mapWriteErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	const q = `
SELECT order_id, email, payment_id, amount::text, currency, status, source, created_at
FROM payments WHERE order_id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}

	var (
		p      model.Payment
		amount string
		status string
		source string
	)
	if err := row.Scan(&p.OrderID, &p.Email, &p.PaymentID, &amount, &p.Currency, &status, &source, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrReadDatabaseRow, amount)
	}
	p.Status = model.PaymentStatus(status)
	p.Source = model.Source(source)
	return &p, nil
}
