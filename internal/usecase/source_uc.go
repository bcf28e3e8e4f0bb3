package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
	"essaygenius/internal/infra/similarity"
)

// Compile-time check
var _ SourceUseCase = (*sourceUC)(nil)

// SourceUseCase finds academic sources for every outline component. Results
// keep outline order regardless of which search finishes first, and sources
// that are near-duplicates of ones already found are dropped.
type SourceUseCase interface {
	FindForOutline(ctx context.Context, outline model.Outline, format model.CitationFormat, perComponent int, onComponent func(done int)) ([][]model.Source, error)
	FindForComponent(ctx context.Context, component model.OutlineComponent, format model.CitationFormat, n int) ([]model.Source, error)
}

type sourceUC struct {
	ai          adapter.AIServiceAdapter
	searchModel string
	parseModel  string
	threshold   float64
	concurrency int
}

func NewSourceUseCase(ai adapter.AIServiceAdapter, searchModel, parseModel string, threshold float64, concurrency int) *sourceUC {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &sourceUC{
		ai:          ai,
		searchModel: searchModel,
		parseModel:  parseModel,
		threshold:   threshold,
		concurrency: concurrency,
	}
}

func (u *sourceUC) FindForOutline(ctx context.Context, outline model.Outline, format model.CitationFormat, perComponent int, onComponent func(done int)) ([][]model.Source, error) {
	results := make([][]model.Source, len(outline.Components))
	index := similarity.NewIndex(u.threshold)

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, component := range outline.Components {
		i, component := i, component
		g.Go(func() error {
			found, err := u.FindForComponent(gctx, component, format, perComponent)
			if err != nil {
				return fmt.Errorf("sources for component %d: %w", i+1, err)
			}
			results[i] = u.dedup(gctx, index, found)

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			if onComponent != nil {
				onComponent(n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (u *sourceUC) FindForComponent(ctx context.Context, component model.OutlineComponent, format model.CitationFormat, n int) ([]model.Source, error) {
	if n < 1 || n > 5 {
		n = 3
	}

	searchResults, err := u.ai.Chat(ctx, u.searchModel, []adapter.Message{
		{Role: "system", Content: sourceSearchSystemPrompt(n)},
		{Role: "user", Content: fmt.Sprintf("Find %d academic sources for the following topic: %s. Include specific details about each source including title, author(s), publication information, and URL if available.", n, componentSearchTopic(component))},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Sources []model.Source `json:"sources"`
	}
	err = u.ai.ChatJSON(ctx, u.parseModel, []adapter.Message{
		{Role: "system", Content: sourceParseSystemPrompt(n, format)},
		{Role: "user", Content: fmt.Sprintf("Topic: %s\n\nSearch Results:\n%s", componentSearchTopic(component), searchResults)},
	}, &parsed)
	if err != nil {
		return nil, err
	}
	return parsed.Sources, nil
}

// dedup keeps only sources whose embedding is not too close to one already
// accepted in this request. Embedding failures keep the source rather than
// lose it.
func (u *sourceUC) dedup(ctx context.Context, index *similarity.Index, sources []model.Source) []model.Source {
	kept := sources[:0]
	for _, s := range sources {
		vec, err := u.ai.Embed(ctx, s.DedupKey())
		if err != nil || index.AddIfNovel(vec) {
			kept = append(kept, s)
		}
	}
	return kept
}
