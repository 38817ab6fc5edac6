package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPrefilterByKeywords(t *testing.T) {
	t.Parallel()

	articles := []Article{
		{Title: "Semaglutide shows benefit", Content: "unrelated body"},
		{Title: "Unrelated title", Content: "the semaglutide arm outperformed placebo"},
		{Title: "Nothing relevant", Content: "plain text without the term"},
		{Title: "Buried", Content: strings.Repeat("x", 3000) + " semaglutide"},
	}

	out, removed := PrefilterByKeywords(articles, []string{"semaglutide"}, 2000)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2 (miss + keyword beyond slice limit)", removed)
	}
}

func TestPrefilterNoKeywordsPassesAll(t *testing.T) {
	t.Parallel()

	articles := []Article{{Title: "a"}, {Title: "b"}}
	out, removed := PrefilterByKeywords(articles, nil, 2000)
	if len(out) != 2 || removed != 0 {
		t.Fatalf("got len=%d removed=%d, want 2 and 0", len(out), removed)
	}
}

func TestClassifyRelevanceAssignsScores(t *testing.T) {
	t.Parallel()

	classifier := &stubClassifier{
		classifyFn: func(_ context.Context, batch []Article, _ []string, _ string) ([]Judgment, error) {
			judgments := make([]Judgment, len(batch))
			for i := range batch {
				judgments[i] = Judgment{Score: 150, Commentary: Commentary{Reason: "r", Summary: "s"}}
			}
			return judgments, nil
		},
	}

	articles := []Article{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	out, detail := ClassifyRelevance(context.Background(), classifier, articles, RelevanceOptions{BatchSize: 2}, zerolog.Nop())

	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	for i, a := range out {
		if a.RelevanceScore == nil {
			t.Fatalf("out[%d] has no score", i)
		}
		if *a.RelevanceScore != 100 {
			t.Fatalf("out[%d] score = %d, want clamped 100", i, *a.RelevanceScore)
		}
	}
	if detail["classified"] != 3 {
		t.Fatalf("classified = %v, want 3", detail["classified"])
	}
}

func TestClassifyRelevanceStructuralFailureNeutralizesBatch(t *testing.T) {
	t.Parallel()

	classifier := &stubClassifier{
		classifyFn: func(_ context.Context, _ []Article, _ []string, _ string) ([]Judgment, error) {
			return nil, &StructuralError{RawText: "not json at all"}
		},
	}

	articles := []Article{
		{Title: "a", Content: "content a"},
		{Title: "b", Content: "content b"},
	}
	out, detail := ClassifyRelevance(context.Background(), classifier, articles, RelevanceOptions{BatchSize: 5}, zerolog.Nop())

	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (articles must never be dropped here)", len(out))
	}
	for i, a := range out {
		if a.RelevanceScore == nil || *a.RelevanceScore != NeutralRelevanceScore {
			t.Fatalf("out[%d] score = %v, want neutral %d", i, a.RelevanceScore, NeutralRelevanceScore)
		}
		if !strings.HasPrefix(a.Commentary.Reason, "classifier failure:") {
			t.Fatalf("out[%d] reason = %q, want classifier failure prefix", i, a.Commentary.Reason)
		}
		if !strings.Contains(a.Commentary.Reason, "not json at all") {
			t.Fatalf("out[%d] reason = %q, want raw text included", i, a.Commentary.Reason)
		}
	}
	if detail["neutral_fallbacks"] != 2 {
		t.Fatalf("neutral_fallbacks = %v, want 2", detail["neutral_fallbacks"])
	}
}

func TestClassifyRelevanceCountMismatchNeutralizesBatch(t *testing.T) {
	t.Parallel()

	classifier := &stubClassifier{
		classifyFn: func(_ context.Context, _ []Article, _ []string, _ string) ([]Judgment, error) {
			return []Judgment{{Score: 90, Commentary: Commentary{Reason: "only one"}}}, nil
		},
	}

	articles := []Article{{Title: "a"}, {Title: "b"}}
	out, _ := ClassifyRelevance(context.Background(), classifier, articles, RelevanceOptions{BatchSize: 5}, zerolog.Nop())

	for i, a := range out {
		if a.RelevanceScore == nil || *a.RelevanceScore != NeutralRelevanceScore {
			t.Fatalf("out[%d] score = %v, want neutral %d", i, a.RelevanceScore, NeutralRelevanceScore)
		}
	}
}

func TestNeutralFallbackSurvivesDefaultFloor(t *testing.T) {
	t.Parallel()

	if NeutralRelevanceScore < 40 {
		t.Fatalf("neutral score %d sits under the default floor 40", NeutralRelevanceScore)
	}

	neutral := NeutralRelevanceScore
	articles := []Article{{Title: "fallback", RelevanceScore: &neutral}}
	out, removed := FilterByRelevanceFloor(articles, 40)
	if len(out) != 1 || removed != 0 {
		t.Fatalf("neutral-scored article was filtered: len=%d removed=%d", len(out), removed)
	}
}

func TestFilterByRelevanceFloor(t *testing.T) {
	t.Parallel()

	low, high := 39, 40
	articles := []Article{
		{Title: "low", RelevanceScore: &low},
		{Title: "at floor", RelevanceScore: &high},
		{Title: "unscored"},
	}

	out, removed := FilterByRelevanceFloor(articles, 40)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	for _, a := range out {
		if a.Title == "low" {
			t.Fatalf("below-floor article survived")
		}
	}
}
