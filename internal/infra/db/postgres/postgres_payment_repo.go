package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	const q = `
INSERT INTO payments (id, user_id, provider, session_id, credit_amount, amount_cents, currency, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  amount_cents = EXCLUDED.amount_cents,
  currency = EXCLUDED.currency,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Provider, p.SessionID, p.CreditAmount,
		p.AmountCents, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *paymentRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error) {
	const q = `
SELECT id, user_id, provider, session_id, credit_amount, amount_cents, currency, status, created_at, updated_at
  FROM payments WHERE session_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, sessionID)
	if err != nil {
		return nil, err
	}
	var p model.Payment
	var status string
	err = row.Scan(&p.ID, &p.UserID, &p.Provider, &p.SessionID, &p.CreditAmount,
		&p.AmountCents, &p.Currency, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

// MarkSucceeded flips a pending payment to succeeded. It reports false when
// the row was already terminal, so concurrent webhook redeliveries cannot
// grant credits twice.
func (r *paymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE payments SET status=$2, updated_at=$3 WHERE id=$1 AND status=$4;`,
		id, model.PaymentStatusSucceeded, time.Now(), model.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
