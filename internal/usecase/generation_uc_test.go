package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	rds "essaygenius/internal/infra/redis"
)

func validOutlineRequest() model.OutlineRequest {
	return model.OutlineRequest{
		Topic:        "The fall of the Roman Empire",
		WritingStyle: "academic",
		WordCount:    1500,
		NumSources:   3,
	}
}

func validEssayRequest() model.EssayRequest {
	return model.EssayRequest{
		Title: "The fall of the Roman Empire",
		Outline: model.Outline{Components: []model.OutlineComponent{
			{MainIdea: "Discuss the economic decline.", Subtopics: []string{"Examine inflation."}},
			{MainIdea: "Analyze military pressures.", Subtopics: []string{"Evaluate border defense."}},
		}},
		Sources:   []model.Source{{Title: "Decline and Fall", Author: "Gibbon, Edward", PublicationYear: 1776}},
		WordCount: 1500,
	}
}

func newGenerationDeps() (*memJobRepo, *memProfileRepo, *memLocker, *generationUC) {
	jobs := newMemJobRepo()
	profiles := newMemProfileRepo()
	locker := newMemLocker()
	credits := NewCreditUseCase(profiles, 2)
	uc := NewGenerationUseCase(jobs, credits, locker, memTxManager{}, 2, newTestLogger())
	return jobs, profiles, locker, uc
}

func TestSubmitOutline(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the essay cost and queues the job", func(t *testing.T) {
		jobs, profiles, _, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 5}

		job, err := uc.SubmitOutline(ctx, "u1", validOutlineRequest())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if job.ID == "" {
			t.Fatal("expected a job id")
		}
		if job.Status != model.JobStatusPending {
			t.Errorf("expected pending status, got %s", job.Status)
		}
		if profiles.store["u1"].Credits != 3 {
			t.Errorf("expected balance 3 after charge, got %d", profiles.store["u1"].Credits)
		}
		stored, err := jobs.Find(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("job not persisted: %v", err)
		}
		if stored.Kind != model.JobKindOutline {
			t.Errorf("expected outline kind, got %s", stored.Kind)
		}
	})

	t.Run("insufficient credits leaves no job and no charge", func(t *testing.T) {
		jobs, profiles, locker, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 1}

		_, err := uc.SubmitOutline(ctx, "u1", validOutlineRequest())
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got: %v", err)
		}
		if profiles.store["u1"].Credits != 1 {
			t.Errorf("balance changed on rejected submission: %d", profiles.store["u1"].Credits)
		}
		if len(jobs.store) != 0 {
			t.Errorf("expected no job, found %d", len(jobs.store))
		}
		if locker.locked(rds.UserJobLockKey("u1")) {
			t.Error("lock not released after rejected submission")
		}
	})

	t.Run("rejects a second submission while one is running", func(t *testing.T) {
		_, profiles, locker, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 10}

		if _, err := uc.SubmitOutline(ctx, "u1", validOutlineRequest()); err != nil {
			t.Fatalf("first submission: %v", err)
		}
		if !locker.locked(rds.UserJobLockKey("u1")) {
			t.Fatal("expected lock to be held after acceptance")
		}
		_, err := uc.SubmitOutline(ctx, "u1", validOutlineRequest())
		if !errors.Is(err, domain.ErrLockHeld) {
			t.Fatalf("expected ErrLockHeld, got: %v", err)
		}
		if profiles.store["u1"].Credits != 8 {
			t.Errorf("second submission must not charge, balance %d", profiles.store["u1"].Credits)
		}
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		_, profiles, _, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 5}

		req := validOutlineRequest()
		req.Topic = ""
		_, err := uc.SubmitOutline(ctx, "u1", req)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestSubmitEssay(t *testing.T) {
	ctx := context.Background()

	t.Run("queues without charging", func(t *testing.T) {
		jobs, profiles, _, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 1}

		job, err := uc.SubmitEssay(ctx, "u1", validEssayRequest())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if profiles.store["u1"].Credits != 1 {
			t.Errorf("essay submission must not charge, balance %d", profiles.store["u1"].Credits)
		}
		stored, _ := jobs.Find(ctx, nil, job.ID)
		if stored.Kind != model.JobKindEssay {
			t.Errorf("expected essay kind, got %s", stored.Kind)
		}
	})

	t.Run("signup grant covers both phases", func(t *testing.T) {
		_, profiles, locker, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 2}

		if _, err := uc.SubmitOutline(ctx, "u1", validOutlineRequest()); err != nil {
			t.Fatalf("outline submission: %v", err)
		}
		if profiles.store["u1"].Credits != 0 {
			t.Fatalf("expected the signup grant to be spent, balance %d", profiles.store["u1"].Credits)
		}
		locker.release(rds.UserJobLockKey("u1"))

		job, err := uc.SubmitEssay(ctx, "u1", validEssayRequest())
		if err != nil {
			t.Fatalf("essay submission at zero balance: %v", err)
		}
		if job.Status != model.JobStatusPending {
			t.Errorf("expected pending status, got %s", job.Status)
		}
	})

	t.Run("payload round-trips the request", func(t *testing.T) {
		jobs, profiles, _, uc := newGenerationDeps()
		profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 1}

		req := validEssayRequest()
		job, err := uc.SubmitEssay(ctx, "u1", req)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		stored, _ := jobs.Find(ctx, nil, job.ID)

		var env jobEnvelope
		if err := json.Unmarshal(stored.Payload, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		var got model.EssayRequest
		if err := json.Unmarshal(env.Request, &got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if got.Title != req.Title || len(got.Outline.Components) != 2 {
			t.Errorf("payload mismatch: %+v", got)
		}
		if env.LockToken == "" {
			t.Error("expected lock token in envelope")
		}
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	jobs, _, _, uc := newGenerationDeps()

	if _, err := uc.Status(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	jobs.store["j1"] = &model.Job{ID: "j1", Status: model.JobStatusProcessing, Progress: 30, Stage: model.StageOutline}
	job, err := uc.Status(ctx, "j1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if job.Progress != 30 || job.Stage != model.StageOutline {
		t.Errorf("unexpected snapshot: %+v", job)
	}
}
