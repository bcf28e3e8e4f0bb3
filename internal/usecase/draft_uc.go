package usecase

import (
	"context"
	"errors"
	"strings"

	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
)

// Compile-time check
var _ DraftUseCase = (*draftUC)(nil)

// DraftUseCase writes the essay body: one generation plus one refinement
// pass per outline component, in order, with each refinement seeing the text
// written so far so sections do not restate each other.
type DraftUseCase interface {
	Generate(ctx context.Context, req model.EssayRequest, onSection func(done, total int)) (string, error)
}

type draftUC struct {
	ai    adapter.AIServiceAdapter
	model string
}

func NewDraftUseCase(ai adapter.AIServiceAdapter, model string) *draftUC {
	return &draftUC{ai: ai, model: model}
}

func (u *draftUC) Generate(ctx context.Context, req model.EssayRequest, onSection func(done, total int)) (string, error) {
	components := req.Outline.Components
	if len(components) == 0 {
		return "", errors.New("outline has no components")
	}

	var draft strings.Builder
	previous := ""
	for i, section := range components {
		isIntro := i == 0
		isConclusion := i == len(components)-1

		text, err := u.ai.Chat(ctx, u.model, []adapter.Message{
			{Role: "system", Content: draftSystemPrompt},
			{Role: "user", Content: sectionPrompt(req, section, isIntro, isConclusion)},
		})
		if err != nil {
			return "", err
		}

		refined, err := u.ai.Chat(ctx, u.model, []adapter.Message{
			{Role: "system", Content: refineSystemPrompt},
			{Role: "user", Content: refinePrompt(previous, text, req.WordCount, len(components))},
		})
		if err != nil {
			// keep the unrefined section rather than fail the whole draft
			refined = text
		}
		refined = stripMarkdown(refined)

		previous += refined
		draft.WriteString(refined)
		draft.WriteString("\n\n")

		if onSection != nil {
			onSection(i+1, len(components))
		}
	}
	return draft.String(), nil
}

func stripMarkdown(s string) string {
	return strings.ReplaceAll(s, "*", "")
}
