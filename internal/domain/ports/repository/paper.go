package repository

import (
	"context"

	"essaygenius/internal/domain/model"
)

type PaperRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Paper) error
	Find(ctx context.Context, tx Tx, id string) (*model.Paper, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Paper, error)
	Delete(ctx context.Context, tx Tx, id, userID string) error
}
