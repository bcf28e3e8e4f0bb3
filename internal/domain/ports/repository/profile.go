package repository

import (
	"context"

	"essaygenius/internal/domain/model"
)

// UserProfileRepository persists per-user credit balances.
type UserProfileRepository interface {
	Find(ctx context.Context, tx Tx, userID string) (*model.UserProfile, error)
	// CreateIfAbsent inserts a profile with the initial credit grant; it is a
	// no-op when the profile already exists.
	CreateIfAbsent(ctx context.Context, tx Tx, userID, email string, initialCredits int) error
	// Debit atomically subtracts amount, failing with
	// domain.ErrInsufficientCredits when the balance is too low. Two
	// concurrent debits can never both succeed on one debit's worth of
	// balance.
	Debit(ctx context.Context, tx Tx, userID string, amount int) (int, error)
	// Credit atomically adds amount and returns the new balance.
	Credit(ctx context.Context, tx Tx, userID string, amount int) (int, error)
}
