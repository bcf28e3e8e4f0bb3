package model

import "time"

type PaperStatus string

const (
	PaperStatusDraft    PaperStatus = "draft"
	PaperStatusComplete PaperStatus = "complete"
	PaperStatusArchived PaperStatus = "archived"
)

// Paper is a persisted, successfully generated essay. The pipeline never
// mutates a paper after creation; only the owning user deletes or archives it.
type Paper struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Status         PaperStatus    `json:"status"`
	WordCount      int            `json:"word_count"`
	CitationFormat CitationFormat `json:"citation_format"`
	StoragePath    string         `json:"storage_url"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// EssayRequest carries the client input for the second pipeline phase. The
// client is the source of truth for outline and source edits made between the
// two phases.
type EssayRequest struct {
	Title           string   `json:"title"`
	Outline         Outline  `json:"outline"`
	Sources         []Source `json:"sources"`
	StudentName     string   `json:"student_name"`
	ProfessorName   string   `json:"professor_name"`
	ClassName       string   `json:"class_name"`
	WordCount       int      `json:"word_count"`
	CitationFormat  string   `json:"citation_format"`
	WritingAnalysis string   `json:"writing_analysis"`
}

// EssayResult is the terminal payload of a completed essay job.
type EssayResult struct {
	Message    string `json:"message"`
	PaperID    string `json:"paper_id"`
	Title      string `json:"title"`
	StorageURL string `json:"storage_url"`
	WordCount  int    `json:"word_count"`
}
