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

var _ repository.PaperRepository = (*paperRepo)(nil)

type paperRepo struct {
	pool *pgxpool.Pool
}

func NewPaperRepo(pool *pgxpool.Pool) *paperRepo {
	return &paperRepo{pool: pool}
}

const paperColumns = `id, user_id, title, description, status, word_count, citation_format, storage_path, created_at, updated_at`

func (r *paperRepo) Save(ctx context.Context, tx repository.Tx, p *model.Paper) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	const q = `
INSERT INTO papers (id, user_id, title, description, status, word_count, citation_format, storage_path, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  description = EXCLUDED.description,
  status = EXCLUDED.status,
  word_count = EXCLUDED.word_count,
  citation_format = EXCLUDED.citation_format,
  storage_path = EXCLUDED.storage_path,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.Title, p.Description, p.Status, p.WordCount,
		p.CitationFormat, p.StoragePath, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *paperRepo) Find(ctx context.Context, tx repository.Tx, id string) (*model.Paper, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+paperColumns+` FROM papers WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanPaper(row)
}

func (r *paperRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Paper, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+paperColumns+` FROM papers WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []*model.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func (r *paperRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM papers WHERE id=$1 AND user_id=$2;`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPaper(row pgx.Row) (*model.Paper, error) {
	var p model.Paper
	var status, format string
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &status,
		&p.WordCount, &format, &p.StoragePath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = model.PaperStatus(status)
	p.CitationFormat = model.CitationFormat(format)
	return &p, nil
}
