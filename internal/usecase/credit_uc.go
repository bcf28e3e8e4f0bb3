package usecase

import (
	"context"

	"essaygenius/internal/domain/ports/repository"
	"essaygenius/internal/infra/metrics"
)

// Compile-time check
var _ CreditUseCase = (*creditUC)(nil)

// CreditUseCase manages per-user credit balances. Debits are atomic: two
// concurrent charges can never both succeed against one charge's worth of
// balance.
type CreditUseCase interface {
	// EnsureProfile creates the profile with the signup grant on first sight.
	EnsureProfile(ctx context.Context, userID, email string) error
	Balance(ctx context.Context, userID string) (int, error)
	// Charge debits amount and returns the new balance, or
	// domain.ErrInsufficientCredits without side effects.
	Charge(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error)
	// Refund returns previously charged credits after a pipeline failure.
	Refund(ctx context.Context, userID string, amount int) error
	// Grant adds purchased credits.
	Grant(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error)
}

type creditUC struct {
	profiles      repository.UserProfileRepository
	signupCredits int
}

func NewCreditUseCase(profiles repository.UserProfileRepository, signupCredits int) *creditUC {
	return &creditUC{profiles: profiles, signupCredits: signupCredits}
}

func (u *creditUC) EnsureProfile(ctx context.Context, userID, email string) error {
	return u.profiles.CreateIfAbsent(ctx, repository.NoTX, userID, email, u.signupCredits)
}

func (u *creditUC) Balance(ctx context.Context, userID string) (int, error) {
	p, err := u.profiles.Find(ctx, repository.NoTX, userID)
	if err != nil {
		return 0, err
	}
	return p.Credits, nil
}

func (u *creditUC) Charge(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error) {
	balance, err := u.profiles.Debit(ctx, tx, userID, amount)
	if err != nil {
		metrics.IncDebitRejection()
		return 0, err
	}
	metrics.AddCreditsDebited(amount)
	return balance, nil
}

func (u *creditUC) Refund(ctx context.Context, userID string, amount int) error {
	_, err := u.profiles.Credit(ctx, repository.NoTX, userID, amount)
	if err == nil {
		metrics.AddCreditsGranted("refund", amount)
	}
	return err
}

func (u *creditUC) Grant(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error) {
	balance, err := u.profiles.Credit(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	metrics.AddCreditsGranted("purchase", amount)
	return balance, nil
}
