package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/ports/repository"
	"essaygenius/internal/infra/logging"
	"essaygenius/internal/usecase"
)

// JobProcessor polls the job queue and dispatches claimed jobs to the
// pipeline through the worker pool.
type JobProcessor struct {
	jobs     repository.JobRepository
	pipeline usecase.PipelineUseCase
	interval time.Duration
	log      *zerolog.Logger
}

func NewJobProcessor(jobs repository.JobRepository, pipeline usecase.PipelineUseCase, interval time.Duration, log *zerolog.Logger) *JobProcessor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &JobProcessor{jobs: jobs, pipeline: pipeline, interval: interval, log: log}
}

// Start runs the fetch loop. This should be run in a goroutine.
func (p *JobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Dur("poll_interval", p.interval).Msg("job processor started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				p.processOne(ctx)
				return nil
			})
		}
	}
}

func (p *JobProcessor) processOne(ctx context.Context) {
	job, err := p.jobs.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to fetch job")
		}
		return
	}

	p.log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("processing job")
	ctx = logging.WithJobID(ctx, job.ID)
	start := time.Now()
	err = p.pipeline.Process(ctx, job)
	if err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Dur("duration", time.Since(start)).Msg("job finished with error")
		return
	}
	p.log.Info().Str("job_id", job.ID).Dur("duration", time.Since(start)).Msg("job finished")
}
