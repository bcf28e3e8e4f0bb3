package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/repository"
	rds "essaygenius/internal/infra/redis"
)

// jobLockTTL caps how long a user's generation lock can outlive a crashed
// worker before a new submission is allowed again.
const jobLockTTL = 30 * time.Minute

// jobEnvelope wraps the client request in the persisted job payload along
// with the lock token the pipeline releases on completion.
type jobEnvelope struct {
	LockToken string          `json:"lock_token,omitempty"`
	Request   json.RawMessage `json:"request"`
}

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// GenerationUseCase accepts pipeline submissions and answers status polls.
// Acceptance of an outline job debits the essay cost atomically with the job
// insert: the caller is either charged with a queued job, or neither.
type GenerationUseCase interface {
	SubmitOutline(ctx context.Context, userID string, req model.OutlineRequest) (*model.Job, error)
	SubmitEssay(ctx context.Context, userID string, req model.EssayRequest) (*model.Job, error)
	// Status returns the job snapshot or domain.ErrNotFound.
	Status(ctx context.Context, jobID string) (*model.Job, error)
}

type generationUC struct {
	jobs      repository.JobRepository
	credits   CreditUseCase
	locker    rds.Locker
	txm       repository.TransactionManager
	essayCost int
	log       *zerolog.Logger
}

func NewGenerationUseCase(jobs repository.JobRepository, credits CreditUseCase, locker rds.Locker, txm repository.TransactionManager, essayCost int, log *zerolog.Logger) *generationUC {
	return &generationUC{jobs: jobs, credits: credits, locker: locker, txm: txm, essayCost: essayCost, log: log}
}

func (u *generationUC) SubmitOutline(ctx context.Context, userID string, req model.OutlineRequest) (*model.Job, error) {
	if req.Topic == "" || req.WritingStyle == "" || req.WordCount <= 0 {
		return nil, fmt.Errorf("%w: topic, writing_style and word_count are required", domain.ErrInvalidArgument)
	}
	if req.NumSources < 1 || req.NumSources > 5 {
		req.NumSources = 3
	}
	req.CitationFormat = string(model.ParseCitationFormat(req.CitationFormat))

	token, err := u.locker.TryLock(ctx, rds.UserJobLockKey(userID), jobLockTTL)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		u.unlock(ctx, userID, token)
		return nil, err
	}
	job := newJob(model.JobKindOutline, userID, token, payload)

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.credits.Charge(ctx, tx, userID, u.essayCost); err != nil {
			return err
		}
		return u.jobs.Create(ctx, tx, job)
	})
	if err != nil {
		u.unlock(ctx, userID, token)
		return nil, err
	}
	u.log.Info().Str("job_id", job.ID).Str("user_id", userID).Str("topic", req.Topic).Msg("outline job accepted")
	return job, nil
}

func (u *generationUC) SubmitEssay(ctx context.Context, userID string, req model.EssayRequest) (*model.Job, error) {
	if req.Title == "" || len(req.Outline.Components) == 0 || len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: title, outline and sources are required", domain.ErrInvalidArgument)
	}
	if req.WordCount <= 0 {
		return nil, fmt.Errorf("%w: word_count must be positive", domain.ErrInvalidArgument)
	}
	req.CitationFormat = string(model.ParseCitationFormat(req.CitationFormat))

	// Second phase is prepaid: the full essay cost was charged at outline
	// acceptance, so a signup account that spent its whole grant on phase
	// one can still finish its essay.
	token, err := u.locker.TryLock(ctx, rds.UserJobLockKey(userID), jobLockTTL)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		u.unlock(ctx, userID, token)
		return nil, err
	}
	job := newJob(model.JobKindEssay, userID, token, payload)
	if err := u.jobs.Create(ctx, repository.NoTX, job); err != nil {
		u.unlock(ctx, userID, token)
		return nil, err
	}
	u.log.Info().Str("job_id", job.ID).Str("user_id", userID).Str("title", req.Title).Msg("essay job accepted")
	return job, nil
}

func (u *generationUC) Status(ctx context.Context, jobID string) (*model.Job, error) {
	return u.jobs.Find(ctx, repository.NoTX, jobID)
}

func (u *generationUC) unlock(ctx context.Context, userID, token string) {
	if err := u.locker.Unlock(ctx, rds.UserJobLockKey(userID), token); err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("failed to release job lock")
	}
}

func newJob(kind model.JobKind, userID, lockToken string, request json.RawMessage) *model.Job {
	payload, _ := json.Marshal(jobEnvelope{LockToken: lockToken, Request: request})
	return &model.Job{
		ID:      ulid.Make().String(),
		Kind:    kind,
		UserID:  userID,
		Status:  model.JobStatusPending,
		Stage:   model.StageStarting,
		Payload: payload,
	}
}
