package pipeline

import (
	"testing"
)

func TestComputeCompositeScoreBreakdownTerms(t *testing.T) {
	t.Parallel()

	article := Article{
		Title:   "Aspirin study",
		Content: "aspirin aspirin",
		URL:     "https://example.com/story",
	}

	breakdown := ComputeCompositeScore(&article, []string{"aspirin"}, false)

	// 3 occurrences across title+content at 20 points each.
	if breakdown.Base != 60 {
		t.Fatalf("Base = %d, want 60", breakdown.Base)
	}
	if breakdown.TitleBonus != 8 {
		t.Fatalf("TitleBonus = %d, want 8", breakdown.TitleBonus)
	}
	if breakdown.DomainBonus != 0 {
		t.Fatalf("DomainBonus = %d, want 0", breakdown.DomainBonus)
	}
	if breakdown.ClassifierBonus != 0 {
		t.Fatalf("ClassifierBonus = %d, want 0 when the classifier never ran", breakdown.ClassifierBonus)
	}
	if breakdown.SourceBonus != 0 {
		t.Fatalf("SourceBonus = %d, want 0 for unknown publisher", breakdown.SourceBonus)
	}
	if breakdown.Total != 68 {
		t.Fatalf("Total = %d, want 68", breakdown.Total)
	}
	if article.CompositeScore != 68 {
		t.Fatalf("CompositeScore = %d, want 68", article.CompositeScore)
	}
}

func TestComputeCompositeScoreClassifierTerm(t *testing.T) {
	t.Parallel()

	high := 85
	a := Article{Title: "x", RelevanceScore: &high}
	b := ComputeCompositeScore(&a, nil, true)
	// 85*0.4 = 34, plus the high-quality bonus.
	if b.ClassifierBonus != 44 {
		t.Fatalf("high-quality ClassifierBonus = %d, want 44", b.ClassifierBonus)
	}

	low := 30
	a = Article{Title: "x", RelevanceScore: &low}
	b = ComputeCompositeScore(&a, nil, true)
	// 30*0.4 = 12, minus the low-quality penalty.
	if b.ClassifierBonus != 7 {
		t.Fatalf("low-quality ClassifierBonus = %d, want 7", b.ClassifierBonus)
	}

	// A score present but produced by a skipped classifier contributes nothing.
	a = Article{Title: "x", RelevanceScore: &high}
	b = ComputeCompositeScore(&a, nil, false)
	if b.ClassifierBonus != 0 {
		t.Fatalf("ClassifierBonus = %d, want 0 when classifierRan is false", b.ClassifierBonus)
	}
}

func TestComputeCompositeScoreStaysInBounds(t *testing.T) {
	t.Parallel()

	high := 100
	rich := Article{
		Title:          "FDA approval for phase 3 clinical trial of biosimilar",
		Content:        "fda approval clinical trial phase 3 biosimilar orphan drug breakthrough therapy",
		URL:            "https://www.fda.gov/news/approval",
		RelevanceScore: &high,
	}
	b := ComputeCompositeScore(&rich, []string{"fda approval", "clinical trial", "phase 3", "biosimilar"}, true)
	if b.Total < 0 || b.Total > 100 {
		t.Fatalf("Total = %d, want within [0,100]", b.Total)
	}
	if b.Total != 100 {
		t.Fatalf("Total = %d, want saturated 100", b.Total)
	}

	empty := Article{}
	b = ComputeCompositeScore(&empty, nil, false)
	if b.Total != 0 {
		t.Fatalf("empty article Total = %d, want 0", b.Total)
	}
}

func TestComputeCompositeScoreDomainAndSourceBonuses(t *testing.T) {
	t.Parallel()

	a := Article{
		Title:   "Breakthrough therapy designation granted",
		Content: "The clinical trial met its endpoints.",
		URL:     "https://www.nejm.org/doi/full/10",
	}
	b := ComputeCompositeScore(&a, nil, false)
	if b.DomainBonus != 22 {
		t.Fatalf("DomainBonus = %d, want 22 (breakthrough therapy + clinical trial)", b.DomainBonus)
	}
	if b.SourceBonus != 12 {
		t.Fatalf("SourceBonus = %d, want 12 for nejm.org", b.SourceBonus)
	}
}

func TestScoreAndRankOrdersDescendingAndStable(t *testing.T) {
	t.Parallel()

	articles := []Article{
		{Title: "no keywords here at all"},
		{Title: "aspirin first tie", Content: "aspirin"},
		{Title: "aspirin second tie", Content: "aspirin"},
	}

	out := ScoreAndRank(articles, []string{"aspirin"}, false)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].CompositeScore > out[i-1].CompositeScore {
			t.Fatalf("not sorted descending at %d: %d > %d", i, out[i].CompositeScore, out[i-1].CompositeScore)
		}
	}
	if out[0].Title != "aspirin first tie" || out[1].Title != "aspirin second tie" {
		t.Fatalf("tie order not stable: got %q then %q", out[0].Title, out[1].Title)
	}
	if out[2].Title != "no keywords here at all" {
		t.Fatalf("zero-score article must sort last, got %q", out[2].Title)
	}
}
