package model

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobKind distinguishes the two client-submitted phases. The phases share no
// server-side state beyond what the client resubmits.
type JobKind string

const (
	JobKindOutline JobKind = "outline"
	JobKindEssay   JobKind = "essay"
)

// Pipeline stage labels as surfaced to polling clients.
const (
	StageStarting      = "starting"
	StageOutline       = "creating_outline"
	StageSources       = "finding_sources"
	StageStyleAnalysis = "analyzing_style"
	StageWriting       = "writing_essay"
	StagePlagiarism    = "checking_plagiarism"
	StageFinalizing    = "finalizing"
	StageCompleted     = "completed"
)

// Job is one asynchronous unit of pipeline work, tracked through status
// polling. Exactly one of Result/LastError is set once terminal.
type Job struct {
	ID        string
	Kind      JobKind
	UserID    string
	Status    JobStatus
	Progress  int
	Stage     string
	Payload   json.RawMessage
	Result    json.RawMessage
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// SetStage advances the stage label and progress. Progress is monotonically
// non-decreasing and terminal jobs never move again.
func (j *Job) SetStage(stage string, progress int) {
	if j.Terminal() {
		return
	}
	j.Stage = stage
	if progress > j.Progress {
		if progress > 100 {
			progress = 100
		}
		j.Progress = progress
	}
	j.UpdatedAt = time.Now()
}

func (j *Job) Complete(result json.RawMessage) {
	if j.Terminal() {
		return
	}
	j.Status = JobStatusCompleted
	j.Stage = StageCompleted
	j.Progress = 100
	j.Result = result
	j.LastError = ""
	j.UpdatedAt = time.Now()
}

func (j *Job) Fail(message string) {
	if j.Terminal() {
		return
	}
	j.Status = JobStatusFailed
	j.LastError = message
	j.Result = nil
	j.UpdatedAt = time.Now()
}
