package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

const jobColumns = `id, kind, user_id, status, progress, stage, payload, result, last_error, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	const q = `
INSERT INTO jobs (id, kind, user_id, status, progress, stage, payload, result, last_error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.Kind, job.UserID, job.Status, job.Progress, job.Stage,
		job.Payload, job.Result, job.LastError, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *jobRepo) Find(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// FetchAndMarkProcessing atomically claims the oldest pending job. The SKIP
// LOCKED clause keeps concurrent workers off the same row.
func (r *jobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.Job, error) {
	var job *model.Job

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		fetched, err := scanJob(row)
		if err != nil {
			return err
		}

		fetched.Status = model.JobStatusProcessing
		fetched.UpdatedAt = time.Now()
		const mark = `UPDATE jobs SET status=$2, updated_at=$3 WHERE id=$1;`
		if _, err := execSQL(ctx, r.pool, tx, mark, fetched.ID, fetched.Status, fetched.UpdatedAt); err != nil {
			return err
		}

		job = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// SetStage takes GREATEST of the stored and the new progress and refuses to
// touch terminal rows, so snapshots observed by pollers never move backwards.
func (r *jobRepo) SetStage(ctx context.Context, tx repository.Tx, id, stage string, progress int) error {
	const q = `
UPDATE jobs
SET stage = $2, progress = GREATEST(progress, $3), updated_at = $4
WHERE id = $1 AND status IN ('pending','processing');`
	_, err := execSQL(ctx, r.pool, tx, q, id, stage, progress, time.Now())
	return err
}

func (r *jobRepo) Complete(ctx context.Context, tx repository.Tx, id string, result json.RawMessage) error {
	const q = `
UPDATE jobs
SET status = 'completed', stage = 'completed', progress = 100,
    result = $2, last_error = '', updated_at = $3
WHERE id = $1 AND status IN ('pending','processing');`
	tag, err := execSQL(ctx, r.pool, tx, q, id, result, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobTerminal
	}
	return nil
}

func (r *jobRepo) Fail(ctx context.Context, tx repository.Tx, id, message string) error {
	const q = `
UPDATE jobs
SET status = 'failed', last_error = $2, result = NULL, updated_at = $3
WHERE id = $1 AND status IN ('pending','processing');`
	tag, err := execSQL(ctx, r.pool, tx, q, id, message, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobTerminal
	}
	return nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var kind, status string
	var result []byte
	err := row.Scan(&j.ID, &kind, &j.UserID, &status, &j.Progress, &j.Stage,
		&j.Payload, &result, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	j.Result = result
	return &j, nil
}
