package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/repository"
	"essaygenius/internal/infra/logging"
	"essaygenius/internal/infra/metrics"
	rds "essaygenius/internal/infra/redis"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// PipelineUseCase runs a claimed job to its terminal state. Every stage
// transition is persisted before the stage's work starts so polling clients
// see checkpoints in order. A failed outline job refunds its charge; a
// guardrail rejection does not.
type PipelineUseCase interface {
	Process(ctx context.Context, job *model.Job) error
}

type pipelineUC struct {
	jobs      repository.JobRepository
	credits   CreditUseCase
	guardrail *Guardrail
	outlines  OutlineUseCase
	sources   SourceUseCase
	drafts    DraftUseCase
	papers    PaperUseCase
	locker    rds.Locker
	essayCost int
	log       *zerolog.Logger
}

func NewPipelineUseCase(
	jobs repository.JobRepository,
	credits CreditUseCase,
	guardrail *Guardrail,
	outlines OutlineUseCase,
	sources SourceUseCase,
	drafts DraftUseCase,
	papers PaperUseCase,
	locker rds.Locker,
	essayCost int,
	log *zerolog.Logger,
) *pipelineUC {
	return &pipelineUC{
		jobs:      jobs,
		credits:   credits,
		guardrail: guardrail,
		outlines:  outlines,
		sources:   sources,
		drafts:    drafts,
		papers:    papers,
		locker:    locker,
		essayCost: essayCost,
		log:       log,
	}
}

func (u *pipelineUC) Process(ctx context.Context, job *model.Job) error {
	log := logging.With(ctx, u.log).With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Logger()

	var env jobEnvelope
	if err := json.Unmarshal(job.Payload, &env); err != nil {
		u.fail(ctx, job, "invalid job payload")
		return err
	}
	defer u.release(ctx, job.UserID, env.LockToken, &log)

	started := time.Now()
	var err error
	switch job.Kind {
	case model.JobKindOutline:
		err = u.runOutline(ctx, job, env.Request, &log)
	case model.JobKindEssay:
		err = u.runEssay(ctx, job, env.Request, &log)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	if err == nil {
		metrics.IncJob(string(job.Kind), "completed")
		log.Info().Dur("took", time.Since(started)).Msg("job completed")
		return nil
	}

	if errors.Is(err, domain.ErrGuardrailRejected) {
		u.fail(ctx, job, RejectionMessage)
		metrics.IncJob(string(job.Kind), "rejected")
		log.Warn().Msg("job rejected by guardrail")
		return err
	}

	u.fail(ctx, job, err.Error())
	metrics.IncJob(string(job.Kind), "failed")
	log.Error().Err(err).Msg("job failed")

	// Outline acceptance charged up front; give it back when the failure
	// was ours, not the prompt's.
	if job.Kind == model.JobKindOutline {
		if rerr := u.credits.Refund(ctx, job.UserID, u.essayCost); rerr != nil {
			log.Error().Err(rerr).Msg("refund after failure did not apply")
		}
	}
	return err
}

func (u *pipelineUC) runOutline(ctx context.Context, job *model.Job, payload json.RawMessage, log *zerolog.Logger) error {
	defer logging.TraceDuration(log, "pipeline.runOutline")()

	var req model.OutlineRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode outline request: %w", err)
	}

	u.checkpoint(ctx, job, model.StageOutline, 10)
	if err := u.guardrail.Moderate(ctx, req.Topic, req.AssignmentDescription, req.PreviousEssay); err != nil {
		return err
	}

	u.checkpoint(ctx, job, model.StageOutline, 30)
	stageStart := time.Now()
	outline, err := u.outlines.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("generate outline: %w", err)
	}
	metrics.ObserveStage(string(job.Kind), model.StageOutline, time.Since(stageStart).Milliseconds())
	log.Info().Int("components", len(outline.Components)).Msg("outline generated")

	u.checkpoint(ctx, job, model.StageSources, 50)
	stageStart = time.Now()
	increment := 40.0 / float64(len(outline.Components))
	if increment > 10 {
		increment = 10
	}
	format := model.ParseCitationFormat(req.CitationFormat)
	sources, err := u.sources.FindForOutline(ctx, *outline, format, req.NumSources, func(done int) {
		progress := 50 + int(float64(done)*increment)
		if progress > 90 {
			progress = 90
		}
		u.checkpoint(ctx, job, model.StageSources, progress)
	})
	if err != nil {
		return fmt.Errorf("find sources: %w", err)
	}
	metrics.ObserveStage(string(job.Kind), model.StageSources, time.Since(stageStart).Milliseconds())

	u.checkpoint(ctx, job, model.StageStyleAnalysis, 90)
	analysis, err := u.outlines.AnalyzeStyle(ctx, req.PreviousEssay)
	if err != nil {
		return fmt.Errorf("analyze writing style: %w", err)
	}

	result, err := json.Marshal(model.OutlineResult{
		Outline:         *outline,
		Sources:         sources,
		WritingAnalysis: analysis,
	})
	if err != nil {
		return err
	}
	return u.jobs.Complete(ctx, repository.NoTX, job.ID, result)
}

func (u *pipelineUC) runEssay(ctx context.Context, job *model.Job, payload json.RawMessage, log *zerolog.Logger) error {
	defer logging.TraceDuration(log, "pipeline.runEssay")()

	var req model.EssayRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("decode essay request: %w", err)
	}

	u.checkpoint(ctx, job, model.StageWriting, 10)
	outlineJSON, _ := json.Marshal(req.Outline)
	sourcesJSON, _ := json.Marshal(req.Sources)
	if err := u.guardrail.Moderate(ctx, req.Title, string(outlineJSON), string(sourcesJSON)); err != nil {
		return err
	}

	u.checkpoint(ctx, job, model.StageWriting, 30)
	stageStart := time.Now()
	sections := len(req.Outline.Components)
	draft, err := u.drafts.Generate(ctx, req, func(done, total int) {
		progress := 30 + done*30/max(total, 1)
		u.checkpoint(ctx, job, model.StageWriting, progress)
	})
	if err != nil {
		return fmt.Errorf("generate draft: %w", err)
	}
	metrics.ObserveStage(string(job.Kind), model.StageWriting, time.Since(stageStart).Milliseconds())
	log.Info().Int("sections", sections).Msg("draft generated")

	u.checkpoint(ctx, job, model.StagePlagiarism, 60)
	report := EvaluateDraft(draft, req)
	if len(report.Findings) > 0 {
		log.Warn().Strs("findings", report.Findings).Int("words", report.WordCount).Msg("draft evaluation findings")
	}

	u.checkpoint(ctx, job, model.StageFinalizing, 80)
	stageStart = time.Now()
	paper, words, err := u.papers.SaveGenerated(ctx, job.UserID, req, draft)
	if err != nil {
		return fmt.Errorf("save paper: %w", err)
	}
	metrics.ObserveStage(string(job.Kind), model.StageFinalizing, time.Since(stageStart).Milliseconds())

	result, err := json.Marshal(model.EssayResult{
		Message:    "Essay generated successfully",
		PaperID:    paper.ID,
		Title:      paper.Title,
		StorageURL: paper.StoragePath,
		WordCount:  words,
	})
	if err != nil {
		return err
	}
	return u.jobs.Complete(ctx, repository.NoTX, job.ID, result)
}

// checkpoint persists a stage transition; a write failure is logged and the
// pipeline keeps going, the next checkpoint will catch up.
func (u *pipelineUC) checkpoint(ctx context.Context, job *model.Job, stage string, progress int) {
	job.SetStage(stage, progress)
	if err := u.jobs.SetStage(ctx, repository.NoTX, job.ID, stage, job.Progress); err != nil {
		u.log.Warn().Err(err).Str("job_id", job.ID).Str("stage", stage).Msg("stage checkpoint write failed")
	}
}

func (u *pipelineUC) fail(ctx context.Context, job *model.Job, message string) {
	if err := u.jobs.Fail(ctx, repository.NoTX, job.ID, message); err != nil {
		u.log.Error().Err(err).Str("job_id", job.ID).Msg("could not mark job failed")
	}
}

func (u *pipelineUC) release(ctx context.Context, userID, token string, log *zerolog.Logger) {
	if token == "" {
		return
	}
	if err := u.locker.Unlock(ctx, rds.UserJobLockKey(userID), token); err != nil {
		log.Warn().Err(err).Msg("failed to release job lock")
	}
}
