package repository

import (
	"context"
	"encoding/json"

	"essaygenius/internal/domain/model"
)

// JobRepository is both the Job Store read by polling clients and the work
// queue claimed by pipeline workers. Each record is only ever written by the
// single pipeline run that owns it, so no cross-job locking is needed beyond
// the claim itself.
type JobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.Job) error
	// Find returns the current snapshot or domain.ErrNotFound.
	Find(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// FetchAndMarkProcessing atomically claims the oldest pending job and
	// marks it processing so no other worker picks it up.
	FetchAndMarkProcessing(ctx context.Context) (*model.Job, error)
	// SetStage persists a stage/progress checkpoint. Progress never
	// decreases and terminal jobs are never touched.
	SetStage(ctx context.Context, tx Tx, id, stage string, progress int) error
	Complete(ctx context.Context, tx Tx, id string, result json.RawMessage) error
	Fail(ctx context.Context, tx Tx, id, message string) error
}
