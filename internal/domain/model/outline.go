package model

// OutlineComponent is one major section of a paper: a main idea plus its
// ordered subtopics.
type OutlineComponent struct {
	MainIdea  string   `json:"main_idea"`
	Subtopics []string `json:"subtopics"`
}

type Outline struct {
	Components []OutlineComponent `json:"outline_components"`
}

// OutlineRequest carries the client input for the first pipeline phase.
type OutlineRequest struct {
	Topic                 string `json:"topic"`
	AssignmentDescription string `json:"assignment_description"`
	WritingStyle          string `json:"writing_style"`
	WordCount             int    `json:"word_count"`
	PreviousEssay         string `json:"previous_essay"`
	CitationFormat        string `json:"citation_format"`
	NumSources            int    `json:"num_sources"`
}

// OutlineResult is the terminal payload of a completed outline job.
type OutlineResult struct {
	Outline         Outline    `json:"outline"`
	Sources         [][]Source `json:"sources"`
	WritingAnalysis string     `json:"writing_analysis"`
}
