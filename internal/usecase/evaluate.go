package usecase

import (
	"strings"

	"essaygenius/internal/domain/model"
)

// EvaluationReport summarizes structural checks run over a finished draft
// before the document is assembled. Findings are advisory: a weak draft still
// ships, the report rides along in logs.
type EvaluationReport struct {
	WordCount      int      `json:"word_count"`
	ParagraphCount int      `json:"paragraph_count"`
	CitationCount  int      `json:"citation_count"`
	Findings       []string `json:"findings,omitempty"`
}

// EvaluateDraft runs deterministic structure checks against the request the
// draft was generated from.
func EvaluateDraft(draft string, req model.EssayRequest) EvaluationReport {
	report := EvaluationReport{}

	paragraphs := splitNonEmptyLines(draft)
	report.ParagraphCount = len(paragraphs)
	report.WordCount = len(strings.Fields(draft))
	report.CitationCount = strings.Count(draft, "(")

	if report.ParagraphCount < len(req.Outline.Components) {
		report.Findings = append(report.Findings, "fewer paragraphs than outline sections")
	}
	if req.WordCount > 0 {
		ratio := float64(report.WordCount) / float64(req.WordCount)
		if ratio < 0.5 {
			report.Findings = append(report.Findings, "draft is well under the requested word count")
		}
		if ratio > 2.0 {
			report.Findings = append(report.Findings, "draft is well over the requested word count")
		}
	}
	if len(req.Sources) > 0 && report.CitationCount == 0 {
		report.Findings = append(report.Findings, "no in-text citations despite provided sources")
	}
	if duplicateParagraphs(paragraphs) {
		report.Findings = append(report.Findings, "repeated paragraph detected")
	}
	return report
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func duplicateParagraphs(paragraphs []string) bool {
	seen := make(map[string]struct{}, len(paragraphs))
	for _, p := range paragraphs {
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}
