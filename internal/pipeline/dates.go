package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/globaltime"
)

const (
	// maxFutureDays bounds how far ahead of "now" a publication date may sit
	// before it is treated as garbage (pre-announced embargo dates pass,
	// parser misfires do not).
	maxFutureDays = 30

	// patternScanLimit caps how much article content the pattern strategy
	// scans. Dates past the first few thousand characters are nearly always
	// citations, not publication dates.
	patternScanLimit = 3000

	// classifierExcerptLimit caps the content slice sent to the classifier
	// for date extraction.
	classifierExcerptLimit = 3000

	// classifierNoDate is the sentinel the classifier returns when it cannot
	// name a publication date.
	classifierNoDate = "none"
)

var minValidDate = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// metadataLayouts is the ordered list of known raw_date formats. First match
// wins; dateparse runs last as a lenient catch-all.
var metadataLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"2006/01/02",
}

// DateResolver assigns a best-effort publication date via an ordered strategy
// cascade: explicit metadata, then classifier extraction, then regex pattern
// extraction. The first strategy producing a valid date wins; an article that
// exhausts the cascade is terminal-undated and dropped downstream.
type DateResolver struct {
	classifier Classifier
	logger     zerolog.Logger
	strategies []dateStrategy
}

type dateStrategy struct {
	method  DateMethod
	resolve func(ctx context.Context, a *Article) (time.Time, bool)
}

func NewDateResolver(classifier Classifier, logger zerolog.Logger) *DateResolver {
	r := &DateResolver{
		classifier: classifier,
		logger:     logger,
	}
	r.strategies = []dateStrategy{
		{method: DateFromMetadata, resolve: r.fromMetadata},
		{method: DateFromClassifier, resolve: r.fromClassifier},
		{method: DateFromPattern, resolve: r.fromPattern},
	}
	return r
}

// Resolve fills ResolvedDate and DateMethod on the article and reports
// whether any strategy produced a valid date.
func (r *DateResolver) Resolve(ctx context.Context, a *Article) bool {
	for _, strategy := range r.strategies {
		if date, ok := strategy.resolve(ctx, a); ok {
			resolved := stripZone(date)
			a.ResolvedDate = &resolved
			a.DateMethod = strategy.method
			return true
		}
	}
	a.ResolvedDate = nil
	a.DateMethod = DateNone
	return false
}

// ResolveAll resolves every article in the batch, drops the undated ones and
// reports resolution statistics. Undated articles are the single biggest
// source of silent data loss in the funnel, so the stats must reach the
// caller.
func (r *DateResolver) ResolveAll(ctx context.Context, articles []Article) ([]Article, DateStats) {
	out := make([]Article, 0, len(articles))
	stats := DateStats{}
	for i := range articles {
		a := articles[i]
		if !r.Resolve(ctx, &a) {
			stats.WithoutDates++
			r.logger.Debug().Str("url", a.URL).Str("title", a.Title).Msg("no publication date found; dropping article")
			continue
		}
		stats.WithDates++
		switch a.DateMethod {
		case DateFromMetadata:
			stats.ViaMetadata++
		case DateFromClassifier:
			stats.ViaClassifier++
		case DateFromPattern:
			stats.ViaPattern++
		}
		out = append(out, a)
	}
	return out, stats
}

func (r *DateResolver) fromMetadata(_ context.Context, a *Article) (time.Time, bool) {
	raw := strings.TrimSpace(a.RawDate)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range metadataLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			if ValidPublicationDate(ts) {
				return ts, true
			}
			return time.Time{}, false
		}
	}

	if ts, err := dateparse.ParseAny(raw); err == nil && ValidPublicationDate(ts) {
		return ts, true
	}
	return time.Time{}, false
}

func (r *DateResolver) fromClassifier(ctx context.Context, a *Article) (time.Time, bool) {
	if r.classifier == nil {
		return time.Time{}, false
	}

	excerpt := *a
	if len(excerpt.Content) > classifierExcerptLimit {
		excerpt.Content = excerpt.Content[:classifierExcerptLimit]
	}

	answer, err := r.classifier.ExtractDate(ctx, excerpt)
	if err != nil {
		r.logger.Debug().Err(err).Str("url", a.URL).Msg("classifier date extraction failed")
		return time.Time{}, false
	}

	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer == "" || answer == classifierNoDate {
		return time.Time{}, false
	}

	// Anything that is not a syntactically valid date is a failure; the
	// resolver never guesses on the classifier's behalf.
	ts, err := time.Parse("2006-01-02", answer)
	if err != nil || !ValidPublicationDate(ts) {
		return time.Time{}, false
	}
	return ts, true
}

func (r *DateResolver) fromPattern(_ context.Context, a *Article) (time.Time, bool) {
	content := a.Content
	if len(content) > patternScanLimit {
		content = content[:patternScanLimit]
	}
	text := a.URL + "\n" + a.Title + "\n" + content

	// Collect every valid candidate across all patterns and keep the most
	// recent one: free text tends to cite historical dates, and the newest
	// date present is the best proxy for the actual publication date.
	var best time.Time
	found := false
	for _, candidate := range scanDateCandidates(text) {
		if !ValidPublicationDate(candidate) {
			continue
		}
		if !found || candidate.After(best) {
			best = candidate
			found = true
		}
	}
	return best, found
}

var (
	rePathDate    = regexp.MustCompile(`/((?:19|20)\d{2})/(\d{1,2})/(\d{1,2})(?:/|$)`)
	rePathCompact = regexp.MustCompile(`/((?:19|20)\d{2})(\d{2})(\d{2})(?:/|\.|$)`)
	reLabeledDate = regexp.MustCompile(`(?i)(?:published|posted|date|released|updated)\s*[:\-]\s*([A-Za-z0-9,/\- ]{6,40})`)
	reISODate     = regexp.MustCompile(`\b((?:19|20)\d{2})-(\d{2})-(\d{2})\b`)
	reMonthFirst  = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+((?:19|20)\d{2})\b`)
	reDayFirst    = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+((?:19|20)\d{2})\b`)
)

func scanDateCandidates(text string) []time.Time {
	var candidates []time.Time

	for _, m := range rePathDate.FindAllStringSubmatch(text, -1) {
		if ts, ok := dateFromNumbers(m[1], m[2], m[3]); ok {
			candidates = append(candidates, ts)
		}
	}
	for _, m := range rePathCompact.FindAllStringSubmatch(text, -1) {
		if ts, ok := dateFromNumbers(m[1], m[2], m[3]); ok {
			candidates = append(candidates, ts)
		}
	}
	for _, m := range reLabeledDate.FindAllStringSubmatch(text, -1) {
		if ts, ok := parseLooseDate(strings.TrimSpace(m[1])); ok {
			candidates = append(candidates, ts)
		}
	}
	for _, m := range reISODate.FindAllStringSubmatch(text, -1) {
		if ts, ok := dateFromNumbers(m[1], m[2], m[3]); ok {
			candidates = append(candidates, ts)
		}
	}
	for _, m := range reMonthFirst.FindAllStringSubmatch(text, -1) {
		if ts, ok := dateFromMonthName(m[2], m[1], m[3]); ok {
			candidates = append(candidates, ts)
		}
	}
	for _, m := range reDayFirst.FindAllStringSubmatch(text, -1) {
		if ts, ok := dateFromMonthName(m[1], m[2], m[3]); ok {
			candidates = append(candidates, ts)
		}
	}

	return candidates
}

func dateFromNumbers(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	ts := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject overflowed dates like February 31 that time.Date normalizes.
	if ts.Day() != d || ts.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return ts, true
}

func dateFromMonthName(day, month, year string) (time.Time, bool) {
	parsed, err := time.Parse("January", normalizeMonthName(month))
	if err != nil {
		return time.Time{}, false
	}
	return dateFromNumbers(year, strconv.Itoa(int(parsed.Month())), day)
}

func normalizeMonthName(month string) string {
	lower := strings.ToLower(strings.TrimSpace(month))
	if lower == "" {
		return ""
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func parseLooseDate(raw string) (time.Time, bool) {
	for _, layout := range metadataLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	if m := reISODate.FindStringSubmatch(raw); m != nil {
		return dateFromNumbers(m[1], m[2], m[3])
	}
	if m := reMonthFirst.FindStringSubmatch(raw); m != nil {
		return dateFromMonthName(m[2], m[1], m[3])
	}
	if m := reDayFirst.FindStringSubmatch(raw); m != nil {
		return dateFromMonthName(m[1], m[2], m[3])
	}
	return time.Time{}, false
}

// ValidPublicationDate is the validity predicate applied at every cascade
// stage: dates outside [1990-01-01, now+30d] are discarded as not found.
func ValidPublicationDate(t time.Time) bool {
	naive := stripZone(t)
	max := stripZone(globaltime.UTC()).AddDate(0, 0, maxFutureDays)
	return !naive.Before(minValidDate) && !naive.After(max)
}

// stripZone drops the timezone rather than converting: the pipeline compares
// wall-clock dates, and heterogeneous sources rarely carry trustworthy zones.
func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
