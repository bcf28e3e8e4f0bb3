package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/repository"
)

var _ repository.UserProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) Find(ctx context.Context, tx repository.Tx, userID string) (*model.UserProfile, error) {
	const q = `
SELECT id, email, credits, created_at, updated_at
  FROM user_profiles WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var p model.UserProfile
	if err := row.Scan(&p.ID, &p.Email, &p.Credits, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, userID, email string, initialCredits int) error {
	now := time.Now()
	const q = `
INSERT INTO user_profiles (id, email, credits, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
ON CONFLICT (id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, email, initialCredits, now)
	return err
}

// Debit is a single guarded UPDATE: two concurrent debits cannot both succeed
// on one debit's worth of balance.
func (r *profileRepo) Debit(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error) {
	if amount < 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
UPDATE user_profiles
SET credits = credits - $2, updated_at = $3
WHERE id = $1 AND credits >= $2
RETURNING credits;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, amount, time.Now())
	if err != nil {
		return 0, err
	}
	var balance int
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing profile and low balance look the same here; callers
			// ensure the profile exists before debiting.
			return 0, domain.ErrInsufficientCredits
		}
		return 0, err
	}
	return balance, nil
}

func (r *profileRepo) Credit(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error) {
	if amount < 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
UPDATE user_profiles
SET credits = credits + $2, updated_at = $3
WHERE id = $1
RETURNING credits;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, amount, time.Now())
	if err != nil {
		return 0, err
	}
	var balance int
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}
