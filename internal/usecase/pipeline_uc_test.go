package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
	"essaygenius/internal/infra/docgen"
	rds "essaygenius/internal/infra/redis"
)

// pipelineDeps bundles the fakes behind a fully wired pipeline.
type pipelineDeps struct {
	jobs     *memJobRepo
	profiles *memProfileRepo
	papers   *memPaperRepo
	store    *memStore
	locker   *memLocker
	ai       *scriptedAI
	pipeline *pipelineUC
	credits  CreditUseCase
}

// scriptedChatJSON routes structured calls by prompt content: the guardrail,
// outline, and source-parse stages each have a distinctive system prompt.
func scriptedChatJSON(verdict string) func(mdl string, msgs []adapter.Message, out any) error {
	return func(mdl string, msgs []adapter.Message, out any) error {
		joined := ""
		for _, m := range msgs {
			joined += m.Content + "\n"
		}
		var doc string
		switch {
		case strings.Contains(joined, "moderation assistant"):
			doc = `{"result": "` + verdict + `"}`
		case strings.Contains(joined, "essay outlines"):
			doc = `{"outline_components": [
				{"main_idea": "Discuss the economic decline.", "subtopics": ["Examine inflation."]},
				{"main_idea": "Analyze military pressures.", "subtopics": ["Evaluate border defense."]}
			]}`
		case strings.Contains(joined, "bibliographic"):
			doc = `{"sources": [{"title": "Decline and Fall", "author": "Gibbon, Edward", "author_last_name": "Gibbon",
				"publication_year": 1776, "publication_info": "Strahan & Cadell", "url": "https://example.org",
				"citation": "Gibbon, E. (1776). Decline and Fall.", "relevance": "Canonical treatment.", "details": "Volume I."}]}`
		default:
			doc = `{}`
		}
		return json.Unmarshal([]byte(doc), out)
	}
}

func newPipelineDeps(verdict string) *pipelineDeps {
	d := &pipelineDeps{
		jobs:     newMemJobRepo(),
		profiles: newMemProfileRepo(),
		papers:   newMemPaperRepo(),
		store:    newMemStore(),
		locker:   newMemLocker(),
		ai:       &scriptedAI{},
	}
	d.ai.chatJSONFunc = scriptedChatJSON(verdict)
	d.credits = NewCreditUseCase(d.profiles, 2)
	d.pipeline = NewPipelineUseCase(
		d.jobs,
		d.credits,
		NewGuardrail(d.ai, "guard-model"),
		NewOutlineUseCase(d.ai, "completion-model"),
		NewSourceUseCase(d.ai, "completion-model", "completion-model", 0.9, 2),
		NewDraftUseCase(d.ai, "draft-model"),
		NewPaperUseCase(d.papers, d.store, docgen.New()),
		d.locker,
		2,
		newTestLogger(),
	)
	return d
}

// enqueue creates a claimed job the way the worker would see it.
func (d *pipelineDeps) enqueue(t *testing.T, kind model.JobKind, userID string, req any) *model.Job {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	token, err := d.locker.TryLock(context.Background(), rds.UserJobLockKey(userID), 0)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	job := newJob(kind, userID, token, payload)
	if err := d.jobs.Create(context.Background(), nil, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	claimed, err := d.jobs.FetchAndMarkProcessing(context.Background())
	if err != nil {
		t.Fatalf("claim job: %v", err)
	}
	return claimed
}

func TestPipelineOutline(t *testing.T) {
	ctx := context.Background()

	t.Run("completes with outline, sources and style analysis", func(t *testing.T) {
		d := newPipelineDeps("benign")
		d.profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 3} // post-charge balance
		req := validOutlineRequest()
		req.PreviousEssay = "An essay I wrote last term."
		job := d.enqueue(t, model.JobKindOutline, "u1", req)

		if err := d.pipeline.Process(ctx, job); err != nil {
			t.Fatalf("process: %v", err)
		}

		final, _ := d.jobs.Find(ctx, nil, job.ID)
		if final.Status != model.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", final.Status, final.LastError)
		}
		if final.Progress != 100 || final.Stage != model.StageCompleted {
			t.Errorf("expected 100/completed, got %d/%s", final.Progress, final.Stage)
		}
		if final.LastError != "" {
			t.Errorf("completed job carries error: %q", final.LastError)
		}

		var result model.OutlineResult
		if err := json.Unmarshal(final.Result, &result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if len(result.Outline.Components) != 2 {
			t.Errorf("expected 2 outline components, got %d", len(result.Outline.Components))
		}
		if len(result.Sources) != 2 {
			t.Errorf("expected sources per component, got %d groups", len(result.Sources))
		}
		if result.WritingAnalysis == "" {
			t.Error("expected writing analysis for a provided previous essay")
		}

		// Stage checkpoints arrive in pipeline order with monotonic progress.
		wantOrder := []string{model.StageOutline, model.StageSources, model.StageStyleAnalysis}
		seen := map[string]bool{}
		for _, s := range d.jobs.stages {
			seen[s] = true
		}
		for _, s := range wantOrder {
			if !seen[s] {
				t.Errorf("missing stage checkpoint %q", s)
			}
		}
		for i := 1; i < len(d.jobs.progressLog); i++ {
			if d.jobs.progressLog[i] < d.jobs.progressLog[i-1] {
				t.Fatalf("progress went backwards: %v", d.jobs.progressLog)
			}
		}
		if len(d.jobs.progressLog) == 0 || d.jobs.progressLog[0] != 10 {
			t.Errorf("expected the first checkpoint at 10, got %v", d.jobs.progressLog)
		}

		if d.locker.locked(rds.UserJobLockKey("u1")) {
			t.Error("lock not released after completion")
		}
		if d.profiles.store["u1"].Credits != 3 {
			t.Errorf("successful job must not touch the balance, got %d", d.profiles.store["u1"].Credits)
		}
	})

	t.Run("guardrail rejection fails the job without refund", func(t *testing.T) {
		d := newPipelineDeps("malicious")
		d.profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 3}
		job := d.enqueue(t, model.JobKindOutline, "u1", validOutlineRequest())

		err := d.pipeline.Process(ctx, job)
		if err == nil {
			t.Fatal("expected an error")
		}

		final, _ := d.jobs.Find(ctx, nil, job.ID)
		if final.Status != model.JobStatusFailed {
			t.Fatalf("expected failed, got %s", final.Status)
		}
		if final.LastError != RejectionMessage {
			t.Errorf("expected the rejection marker, got %q", final.LastError)
		}
		if final.Result != nil {
			t.Error("failed job must not carry a result")
		}
		// Polling clients see the job enter its first stage before the
		// moderation verdict lands.
		if len(d.jobs.progressLog) == 0 || d.jobs.progressLog[0] != 10 {
			t.Errorf("expected a checkpoint at 10 before rejection, got %v", d.jobs.progressLog)
		}
		if d.profiles.store["u1"].Credits != 3 {
			t.Errorf("guardrail rejection must not refund, got %d", d.profiles.store["u1"].Credits)
		}
		if d.locker.locked(rds.UserJobLockKey("u1")) {
			t.Error("lock not released after rejection")
		}
	})

	t.Run("transient failure refunds the charge", func(t *testing.T) {
		d := newPipelineDeps("benign")
		d.profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 3}
		base := d.ai.chatJSONFunc
		d.ai.chatJSONFunc = func(mdl string, msgs []adapter.Message, out any) error {
			joined := ""
			for _, m := range msgs {
				joined += m.Content
			}
			if strings.Contains(joined, "essay outlines") {
				return errors.New("upstream timeout")
			}
			return base(mdl, msgs, out)
		}
		job := d.enqueue(t, model.JobKindOutline, "u1", validOutlineRequest())

		if err := d.pipeline.Process(ctx, job); err == nil {
			t.Fatal("expected an error")
		}

		final, _ := d.jobs.Find(ctx, nil, job.ID)
		if final.Status != model.JobStatusFailed {
			t.Fatalf("expected failed, got %s", final.Status)
		}
		if d.profiles.store["u1"].Credits != 5 {
			t.Errorf("expected refund back to 5, got %d", d.profiles.store["u1"].Credits)
		}
	})
}

func TestPipelineEssay(t *testing.T) {
	ctx := context.Background()

	t.Run("completes and stores the paper", func(t *testing.T) {
		d := newPipelineDeps("benign")
		d.profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 3}
		d.ai.chatFunc = func(mdl string, msgs []adapter.Message) (string, error) {
			return "The western empire weakened over centuries. Trade routes failed and taxes rose.", nil
		}
		req := validEssayRequest()
		req.StudentName = "Alex Morgan"
		job := d.enqueue(t, model.JobKindEssay, "u1", req)

		if err := d.pipeline.Process(ctx, job); err != nil {
			t.Fatalf("process: %v", err)
		}

		final, _ := d.jobs.Find(ctx, nil, job.ID)
		if final.Status != model.JobStatusCompleted {
			t.Fatalf("expected completed, got %s (%s)", final.Status, final.LastError)
		}

		var result model.EssayResult
		if err := json.Unmarshal(final.Result, &result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if result.PaperID == "" || result.StorageURL == "" {
			t.Errorf("incomplete result: %+v", result)
		}
		if result.WordCount <= 0 {
			t.Errorf("expected a positive word count, got %d", result.WordCount)
		}

		paper, err := d.papers.Find(ctx, nil, result.PaperID)
		if err != nil {
			t.Fatalf("paper record missing: %v", err)
		}
		if paper.StoragePath == "" || paper.StoragePath != result.StorageURL {
			t.Errorf("storage path not persisted: %+v", paper)
		}
		if paper.WordCount != result.WordCount || paper.Status != model.PaperStatusComplete {
			t.Errorf("final fields not persisted: %+v", paper)
		}
		if len(d.store.objects) != 1 {
			t.Errorf("expected one uploaded document, got %d", len(d.store.objects))
		}

		for _, s := range []string{model.StageWriting, model.StagePlagiarism, model.StageFinalizing} {
			found := false
			for _, logged := range d.jobs.stages {
				if logged == s {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("missing stage checkpoint %q", s)
			}
		}
		if d.profiles.store["u1"].Credits != 3 {
			t.Errorf("essay phase must not charge or refund, got %d", d.profiles.store["u1"].Credits)
		}
	})

	t.Run("draft failure fails the job without refund", func(t *testing.T) {
		d := newPipelineDeps("benign")
		d.profiles.store["u1"] = &model.UserProfile{ID: "u1", Credits: 3}
		d.ai.chatFunc = func(mdl string, msgs []adapter.Message) (string, error) {
			return "", errors.New("model unavailable")
		}
		job := d.enqueue(t, model.JobKindEssay, "u1", validEssayRequest())

		if err := d.pipeline.Process(ctx, job); err == nil {
			t.Fatal("expected an error")
		}
		final, _ := d.jobs.Find(ctx, nil, job.ID)
		if final.Status != model.JobStatusFailed {
			t.Fatalf("expected failed, got %s", final.Status)
		}
		if d.profiles.store["u1"].Credits != 3 {
			t.Errorf("essay failures never refund, got %d", d.profiles.store["u1"].Credits)
		}
	})
}
