package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
	"essaygenius/internal/domain/ports/repository"
	"essaygenius/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase drives credit purchases: opening a hosted checkout and
// fulfilling the provider's completion webhook. Fulfillment is idempotent on
// the checkout session so webhook redelivery never double-grants.
type PaymentUseCase interface {
	// CreateCheckout opens a checkout for quantity credits and records the
	// pending payment. Returns the redirect URL.
	CreateCheckout(ctx context.Context, userID string, quantity int) (string, error)
	// Fulfill applies a verified checkout.session.completed event: marks the
	// payment succeeded and grants the credits in one transaction.
	Fulfill(ctx context.Context, event *adapter.WebhookEvent) error
}

type paymentUC struct {
	payments repository.PaymentRepository
	credits  CreditUseCase
	gateway  adapter.PaymentGateway
	txm      repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, credits CreditUseCase, gateway adapter.PaymentGateway, txm repository.TransactionManager, log *zerolog.Logger) *paymentUC {
	return &paymentUC{payments: payments, credits: credits, gateway: gateway, txm: txm, log: log}
}

func (u *paymentUC) CreateCheckout(ctx context.Context, userID string, quantity int) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidArgument)
	}

	session, err := u.gateway.CreateCheckoutSession(ctx, userID, quantity)
	if err != nil {
		metrics.IncPayment("create_failed")
		return "", err
	}

	p := &model.Payment{
		UserID:       userID,
		Provider:     u.gateway.Name(),
		SessionID:    session.ID,
		CreditAmount: quantity,
		Status:       model.PaymentStatusPending,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return "", err
	}
	metrics.IncPayment("pending")
	u.log.Info().Str("user_id", userID).Str("session_id", session.ID).Int("credits", quantity).Msg("checkout session created")
	return session.URL, nil
}

func (u *paymentUC) Fulfill(ctx context.Context, event *adapter.WebhookEvent) error {
	if event.Type != "checkout.session.completed" || event.SessionID == "" {
		return nil
	}

	p, err := u.payments.FindBySessionID(ctx, repository.NoTX, event.SessionID)
	if err != nil {
		return fmt.Errorf("lookup payment for session %s: %w", event.SessionID, err)
	}
	if p.Status == model.PaymentStatusSucceeded {
		u.log.Info().Str("session_id", event.SessionID).Msg("webhook replay, payment already fulfilled")
		return nil
	}

	var granted bool
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// The guarded transition is the authority: a concurrent redelivery
		// that passed the pre-check above loses here and grants nothing.
		won, err := u.payments.MarkSucceeded(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		p.AmountCents = event.AmountCents
		p.Currency = event.Currency
		p.Status = model.PaymentStatusSucceeded
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		if _, err := u.credits.Grant(ctx, tx, p.UserID, p.CreditAmount); err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		metrics.IncPayment("failed")
		return err
	}
	if !granted {
		u.log.Info().Str("session_id", event.SessionID).Msg("webhook replay, payment already fulfilled")
		return nil
	}
	metrics.IncPayment("succeeded")
	u.log.Info().Str("user_id", p.UserID).Str("session_id", event.SessionID).Int("credits", p.CreditAmount).Msg("payment fulfilled")
	return nil
}
