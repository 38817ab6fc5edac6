package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NeutralRelevanceScore is assigned when the classifier's output cannot be
// parsed. It is deliberately distinct from a low score: an unparsable
// judgment means "unknown", not "irrelevant", and must never push an article
// under the default relevance floor.
const NeutralRelevanceScore = 50

// RelevanceOptions tunes the classification and filtering stages.
type RelevanceOptions struct {
	Keywords      []string
	SearchContext string
	Floor         int
	BatchSize     int
	Pacing        time.Duration
	SliceLen      int
}

// PrefilterByKeywords drops articles with zero keyword occurrences in the
// title and the leading content slice. This is a cost-control gate before the
// classifier, not a semantic judgment: it trades a small false-negative rate
// for a large reduction in classifier calls, and its in/out counts are
// surfaced in stage stats so the loss stays auditable.
func PrefilterByKeywords(articles []Article, keywords []string, sliceLen int) ([]Article, int) {
	if len(keywords) == 0 {
		return articles, 0
	}
	if sliceLen <= 0 {
		sliceLen = 2000
	}

	out := make([]Article, 0, len(articles))
	removed := 0
	for _, a := range articles {
		content := a.Content
		if len(content) > sliceLen {
			content = content[:sliceLen]
		}
		if matchesAnyKeyword(a.Title, keywords) || matchesAnyKeyword(content, keywords) {
			out = append(out, a)
			continue
		}
		removed++
	}
	return out, removed
}

func matchesAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ClassifyRelevance obtains a 0-100 relevance judgment per article. Articles
// are grouped into batches so several are judged per upstream call; a fixed
// pacing delay separates successive calls as crude protection against rate
// limits. Any failed call degrades that batch to the neutral fallback score
// with the failure recorded in the commentary reason; articles are never
// dropped here.
func ClassifyRelevance(ctx context.Context, classifier Classifier, articles []Article, opts RelevanceOptions, logger zerolog.Logger) ([]Article, map[string]any) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	out := make([]Article, 0, len(articles))
	classified := 0
	fallbacks := 0

	for start := 0; start < len(articles); start += batchSize {
		end := start + batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		if start > 0 && opts.Pacing > 0 {
			pacingWait(ctx, opts.Pacing)
		}

		judgments, err := classifier.Classify(ctx, batch, opts.Keywords, opts.SearchContext)
		if err != nil || len(judgments) != len(batch) {
			if err == nil {
				err = errors.New("judgment count does not match batch size")
			}
			var structural *StructuralError
			raw := ""
			if errors.As(err, &structural) {
				raw = structural.RawText
			}
			logger.Warn().Err(err).Int("batch", len(batch)).Msg("classification failed; assigning neutral scores")
			for _, a := range batch {
				neutral := NeutralRelevanceScore
				a.RelevanceScore = &neutral
				a.Commentary = Commentary{
					Reason:  "classifier failure: " + err.Error() + truncatedRaw(raw),
					Summary: firstChars(a.Content, 200),
				}
				out = append(out, a)
				fallbacks++
			}
			continue
		}

		for i, a := range batch {
			score := clampScore(judgments[i].Score)
			a.RelevanceScore = &score
			a.Commentary = judgments[i].Commentary
			out = append(out, a)
			classified++
		}
	}

	return out, map[string]any{
		"classified":        classified,
		"neutral_fallbacks": fallbacks,
	}
}

// FilterByRelevanceFloor drops articles judged below the floor. Articles that
// somehow lack a score are kept: absence of a judgment is never treated as a
// negative judgment.
func FilterByRelevanceFloor(articles []Article, floor int) ([]Article, int) {
	out := make([]Article, 0, len(articles))
	removed := 0
	for _, a := range articles {
		if a.RelevanceScore != nil && *a.RelevanceScore < floor {
			removed++
			continue
		}
		out = append(out, a)
	}
	return out, removed
}

func pacingWait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func truncatedRaw(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return "; raw: " + firstChars(raw, 200)
}

func firstChars(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
