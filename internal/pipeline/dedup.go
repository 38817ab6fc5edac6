package pipeline

import (
	"sort"
	"strings"
)

// DefaultTitleSimilarityThreshold is the similarity ratio at or above which
// two titles are considered the same underlying article.
const DefaultTitleSimilarityThreshold = 0.75

// DeduplicateByURL removes articles whose URL was already seen in the batch,
// keeping the first occurrence. Articles without a URL always pass through.
// This runs before title dedup so cross-adapter exact duplicates never reach
// the similarity pass.
func DeduplicateByURL(articles []Article) ([]Article, int) {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	removed := 0
	for _, a := range articles {
		key := strings.TrimSpace(a.URL)
		if key == "" {
			out = append(out, a)
			continue
		}
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out, removed
}

type titleGroup struct {
	representative string
	members        []int
}

// DeduplicateByTitle groups near-duplicate articles across sources by title
// similarity and keeps the most informative member of each group.
//
// Grouping is representative-based: each incoming article is compared against
// the first member of every existing group and joins the first group scoring
// at or above the threshold, otherwise it starts a new group. The grouping is
// therefore not transitive; an article can miss a group it conceptually
// belongs to when it only resembles a later member. This is a known, accepted
// approximation, kept deliberately over full pairwise clustering.
//
// Articles with empty titles bypass grouping and always survive.
func DeduplicateByTitle(articles []Article, threshold float64) ([]Article, DedupStats) {
	if threshold <= 0 {
		threshold = DefaultTitleSimilarityThreshold
	}

	groups := make([]titleGroup, 0, len(articles))
	passthrough := make([]int, 0)

	for i, a := range articles {
		norm := strings.ToLower(strings.TrimSpace(a.Title))
		if norm == "" {
			passthrough = append(passthrough, i)
			continue
		}

		matched := false
		for gi := range groups {
			if sequenceRatio(norm, groups[gi].representative) >= threshold {
				groups[gi].members = append(groups[gi].members, i)
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, titleGroup{representative: norm, members: []int{i}})
		}
	}

	survivors := make([]int, 0, len(groups)+len(passthrough))
	stats := DedupStats{}
	for _, g := range groups {
		if len(g.members) > 1 {
			stats.DuplicateGroups++
			stats.DuplicatesRemoved += len(g.members) - 1
		}
		survivors = append(survivors, richestMember(articles, g.members))
	}
	survivors = append(survivors, passthrough...)

	// Emit in arrival order so later stable sorting stays meaningful.
	sort.Ints(survivors)

	out := make([]Article, 0, len(survivors))
	for _, idx := range survivors {
		out = append(out, articles[idx])
	}
	stats.UniqueArticles = len(out)
	return out, stats
}

// richestMember picks the group survivor: longest content wins, ties broken
// by authors length, then URL length, then arrival order.
func richestMember(articles []Article, members []int) int {
	best := members[0]
	for _, idx := range members[1:] {
		if richer(articles[idx], articles[best]) {
			best = idx
		}
	}
	return best
}

func richer(a, b Article) bool {
	if len(a.Content) != len(b.Content) {
		return len(a.Content) > len(b.Content)
	}
	if len(a.Authors) != len(b.Authors) {
		return len(a.Authors) > len(b.Authors)
	}
	return len(a.URL) > len(b.URL)
}

// sequenceRatio is a character-level sequence-similarity ratio in [0,1]:
// twice the length of the longest common subsequence over the combined
// length. Identical strings score 1, disjoint strings 0.
func sequenceRatio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			if ar[i-1] == br[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(br)]
	return (2 * float64(lcs)) / float64(len(ar)+len(br))
}
