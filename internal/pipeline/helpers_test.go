package pipeline

import (
	"context"
	"time"
)

// stubClassifier scripts classifier behavior per test.
type stubClassifier struct {
	classifyFn    func(ctx context.Context, batch []Article, keywords []string, searchContext string) ([]Judgment, error)
	extractDateFn func(ctx context.Context, article Article) (string, error)
}

func (s *stubClassifier) Classify(ctx context.Context, batch []Article, keywords []string, searchContext string) ([]Judgment, error) {
	if s.classifyFn == nil {
		judgments := make([]Judgment, len(batch))
		for i := range judgments {
			judgments[i] = Judgment{Score: 70, Commentary: Commentary{Reason: "stub", Summary: "stub summary"}}
		}
		return judgments, nil
	}
	return s.classifyFn(ctx, batch, keywords, searchContext)
}

func (s *stubClassifier) ExtractDate(ctx context.Context, article Article) (string, error) {
	if s.extractDateFn == nil {
		return "none", nil
	}
	return s.extractDateFn(ctx, article)
}

// stubAdapter returns scripted articles and records its queries.
type stubAdapter struct {
	name     string
	source   Source
	articles []Article
	err      error

	// emptyFirst makes the first call return nothing so the widened-query
	// retry can be observed.
	emptyFirst bool

	calls [][]string
}

func (s *stubAdapter) Name() string   { return s.name }
func (s *stubAdapter) Source() Source { return s.source }

func (s *stubAdapter) Search(_ context.Context, keywords []string, _, _ time.Time) ([]Article, error) {
	s.calls = append(s.calls, append([]string(nil), keywords...))
	if s.err != nil {
		return nil, s.err
	}
	if s.emptyFirst && len(s.calls) == 1 {
		return nil, nil
	}
	return s.articles, nil
}

func datePtr(t time.Time) *time.Time { return &t }
