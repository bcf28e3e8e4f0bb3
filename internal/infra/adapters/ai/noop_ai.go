package ai

import (
	"context"
	"encoding/json"
	"time"

	"essaygenius/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev runs.
// It returns canned output instead of sending real requests.
type NoopAIAdapter struct {
	// JSONResponse is decoded into out by ChatJSON when set.
	JSONResponse string
}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{}
}

func (a *NoopAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(m.Content) / 4
	}
	return n, nil
}

func (a *NoopAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "This is a noop AI response.", nil
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	text, err := a.Chat(ctx, model, messages)
	return text, adapter.Usage{}, err
}

// noopJSON carries every field the pipeline decodes, so one canned document
// answers moderation, outline and source-parsing calls alike. Callers ignore
// the fields their target struct does not declare.
const noopJSON = `{
  "result": "benign",
  "outline_components": [
    {"main_idea": "Introduce the topic and state the thesis.", "subtopics": ["Provide background context.", "Present the central claim."]},
    {"main_idea": "Develop the main argument with evidence.", "subtopics": ["Examine the strongest supporting example.", "Address a counterargument."]},
    {"main_idea": "Conclude and restate the significance.", "subtopics": ["Summarize the findings.", "Suggest further questions."]}
  ],
  "sources": [
    {"title": "A Study of the Subject", "author": "Doe, Jane", "author_last_name": "Doe", "publication_year": 2021, "publication_info": "Journal of Examples, vol. 4", "url": "https://example.org/study"}
  ]
}`

func (a *NoopAIAdapter) ChatJSON(ctx context.Context, model string, messages []adapter.Message, out any) error {
	if a.JSONResponse == "" {
		return json.Unmarshal([]byte(noopJSON), out)
	}
	return json.Unmarshal([]byte(a.JSONResponse), out)
}

func (a *NoopAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	return v, nil
}
