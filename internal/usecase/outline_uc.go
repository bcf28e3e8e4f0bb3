package usecase

import (
	"context"
	"errors"

	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
)

// Compile-time check
var _ OutlineUseCase = (*outlineUC)(nil)

// OutlineUseCase produces the structured outline and the writing-style
// analysis for the first pipeline phase.
type OutlineUseCase interface {
	Generate(ctx context.Context, req model.OutlineRequest) (*model.Outline, error)
	// AnalyzeStyle summarizes stylistic patterns in a previous essay sample.
	// An empty sample yields an empty analysis without an API call.
	AnalyzeStyle(ctx context.Context, previousEssay string) (string, error)
}

type outlineUC struct {
	ai    adapter.AIServiceAdapter
	model string
}

func NewOutlineUseCase(ai adapter.AIServiceAdapter, model string) *outlineUC {
	return &outlineUC{ai: ai, model: model}
}

func (u *outlineUC) Generate(ctx context.Context, req model.OutlineRequest) (*model.Outline, error) {
	messages := []adapter.Message{
		{Role: "system", Content: outlineSystemPrompt},
		{Role: "user", Content: outlinePrompt(req)},
	}
	var outline model.Outline
	if err := u.ai.ChatJSON(ctx, u.model, messages, &outline); err != nil {
		return nil, err
	}
	if len(outline.Components) == 0 {
		return nil, errors.New("generated outline is empty")
	}
	return &outline, nil
}

func (u *outlineUC) AnalyzeStyle(ctx context.Context, previousEssay string) (string, error) {
	if previousEssay == "" {
		return "", nil
	}
	messages := []adapter.Message{
		{Role: "system", Content: styleAnalysisSystemPrompt},
		{Role: "user", Content: "Analyze the following essay sample for writing style characteristics:\n\n" + previousEssay},
	}
	return u.ai.Chat(ctx, u.model, messages)
}
