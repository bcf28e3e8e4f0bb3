package repository

import (
	"context"

	"essaygenius/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindBySessionID(ctx context.Context, tx Tx, sessionID string) (*model.Payment, error)
	// MarkSucceeded flips a pending payment to succeeded and reports
	// whether this call performed the transition.
	MarkSucceeded(ctx context.Context, tx Tx, id string) (bool, error)
}
