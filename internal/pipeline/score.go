package pipeline

import (
	"sort"
	"strings"
)

const (
	keywordBaseCap    = 90
	keywordPoints     = 20
	titleBonusCap     = 20
	titlePoints       = 8
	classifierWeight  = 0.4
	highQualityFloor  = 80
	highQualityBonus  = 10
	lowQualityCeiling = 40
	lowQualityPenalty = -5
)

// domainTermWeights rewards pharma-specific signal terms found anywhere in
// the title or content. Checked in order; every matching term contributes.
var domainTermWeights = []struct {
	term   string
	weight int
}{
	{"fda approval", 15},
	{"ema approval", 15},
	{"breakthrough therapy", 12},
	{"phase iii", 12},
	{"phase 3", 12},
	{"clinical trial", 10},
	{"phase ii", 8},
	{"phase 2", 8},
	{"drug recall", 10},
	{"black box warning", 10},
	{"adverse event", 8},
	{"biosimilar", 8},
	{"drug interaction", 6},
	{"patent expir", 6},
	{"orphan drug", 6},
	{"generic", 4},
	{"indication", 4},
}

// sourceCredibility awards points to well-known publishers. First matching
// entry wins; unknown sources get nothing rather than a penalty.
var sourceCredibility = []struct {
	domain string
	points int
}{
	{"fda.gov", 15},
	{"ema.europa.eu", 15},
	{"nih.gov", 12},
	{"pubmed", 12},
	{"nejm.org", 12},
	{"thelancet.com", 12},
	{"jamanetwork.com", 10},
	{"nature.com", 10},
	{"bmj.com", 10},
	{"sciencedirect.com", 8},
	{"reuters.com", 8},
	{"fiercepharma.com", 6},
	{"statnews.com", 6},
	{"medscape.com", 5},
}

// ComputeCompositeScore recomputes the final ranking score for one article,
// blending keyword density, domain bonus terms, title weighting, the external
// classifier score and source credibility. Every term is kept in the
// breakdown; the total alone cannot explain rank order.
//
// classifierRan distinguishes "no classifier configured" (the classifier term
// is omitted entirely) from "classifier ran and scored 0".
func ComputeCompositeScore(a *Article, keywords []string, classifierRan bool) ScoreBreakdown {
	text := strings.ToLower(a.Title + " " + a.Content)
	title := strings.ToLower(a.Title)

	bodyCount := countKeywordOccurrences(text, keywords)
	base := bodyCount * keywordPoints
	if base > keywordBaseCap {
		base = keywordBaseCap
	}

	domainBonus := 0
	for _, entry := range domainTermWeights {
		if strings.Contains(text, entry.term) {
			domainBonus += entry.weight
		}
	}

	titleCount := countKeywordOccurrences(title, keywords)
	titleBonus := titleCount * titlePoints
	if titleBonus > titleBonusCap {
		titleBonus = titleBonusCap
	}

	classifierBonus := 0
	if classifierRan && a.RelevanceScore != nil {
		score := *a.RelevanceScore
		classifierBonus = int(float64(score) * classifierWeight)
		switch {
		case score >= highQualityFloor:
			classifierBonus += highQualityBonus
		case score < lowQualityCeiling:
			classifierBonus += lowQualityPenalty
		}
	}

	sourceBonus := sourceCredibilityBonus(a.URL, a.SourceName)

	total := base + domainBonus + titleBonus + classifierBonus + sourceBonus
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	breakdown := ScoreBreakdown{
		Base:            base,
		DomainBonus:     domainBonus,
		TitleBonus:      titleBonus,
		ClassifierBonus: classifierBonus,
		SourceBonus:     sourceBonus,
		Total:           total,
	}
	a.CompositeScore = total
	a.Breakdown = breakdown
	return breakdown
}

// ScoreAndRank scores every article and sorts descending by composite score.
// The sort is stable: ties keep arrival order, with no further tie-breaking.
func ScoreAndRank(articles []Article, keywords []string, classifierRan bool) []Article {
	for i := range articles {
		ComputeCompositeScore(&articles[i], keywords, classifierRan)
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CompositeScore > articles[j].CompositeScore
	})
	return articles
}

func countKeywordOccurrences(lowerText string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		count += strings.Count(lowerText, kw)
	}
	return count
}

func sourceCredibilityBonus(url, sourceName string) int {
	haystack := strings.ToLower(url + " " + sourceName)
	for _, entry := range sourceCredibility {
		if strings.Contains(haystack, entry.domain) {
			return entry.points
		}
	}
	return 0
}
