package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SourceAdapter normalizes one provider's responses into Article records.
// Adapters are independent network boundaries; a failed adapter contributes
// zero articles without failing the run.
type SourceAdapter interface {
	Name() string
	Source() Source
	Search(ctx context.Context, keywords []string, start, end time.Time) ([]Article, error)
}

// Stage names, in execution order. No stage is ever silently omitted from the
// stats map: a stage that cannot run records status=skipped with a reason.
const (
	StageCollect         = "collect"
	StageDedupURL        = "dedup_url"
	StageDedupTitle      = "dedup_title"
	StageResolveDates    = "resolve_dates"
	StageFilterDateRange = "filter_date_range"
	StagePrefilter       = "prefilter_keywords"
	StageClassify        = "classify_relevance"
	StageFilterRelevance = "filter_relevance"
	StageScoreRank       = "score_rank"
	StageHighlight       = "highlight"
	StageFinalize        = "finalize"
)

const summaryExcerptLen = 300

// Options carries the orchestrator's tunables, wired once at construction.
type Options struct {
	DedupThreshold    float64
	RelevanceFloor    int
	RangePolicies     map[Source]RangePolicy
	ClassifierBatch   int
	ClassifierPacing  time.Duration
	PrefilterSliceLen int

	// DetectLanguage stamps the passthrough language tag on collected
	// articles; nil disables detection.
	DetectLanguage func(text string) string
}

// Request describes one pipeline run.
type Request struct {
	SessionID     string
	Keywords      []string
	Start         time.Time
	End           time.Time
	SearchContext string
}

// Orchestrator sequences the pipeline stages over a bounded in-memory batch
// and is the single catch point for run-level failures. It holds no mutable
// state across runs; construct one per process and share it.
type Orchestrator struct {
	adapters   []SourceAdapter
	classifier Classifier
	resolver   *DateResolver
	opts       Options
	logger     zerolog.Logger
}

func NewOrchestrator(adapters []SourceAdapter, classifier Classifier, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.DedupThreshold <= 0 {
		opts.DedupThreshold = DefaultTitleSimilarityThreshold
	}
	if opts.RangePolicies == nil {
		opts.RangePolicies = DefaultRangePolicies(0)
	}
	return &Orchestrator{
		adapters:   adapters,
		classifier: classifier,
		resolver:   NewDateResolver(classifier, logger),
		opts:       opts,
		logger:     logger,
	}
}

// Run executes every stage in order and assembles the final ranked,
// source-grouped payload. A panic inside any stage halts the run and returns
// success=false with the failure message; partial results are never returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (result Result) {
	stats := make(map[string]StageStat, 11)
	result = Result{SessionID: req.SessionID, StageStats: stats}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Msg("pipeline stage panicked; halting run")
			result = Result{
				SessionID:  req.SessionID,
				Success:    false,
				StageStats: stats,
				Error:      fmt.Sprintf("pipeline stage failed: %v", r),
			}
		}
	}()

	// collect
	articles, sourceErrors := o.collect(ctx, req)
	stats[StageCollect] = StageStat{
		Status: StageOK,
		In:     0,
		Out:    len(articles),
		Detail: map[string]any{"sources": len(o.adapters), "source_errors": sourceErrors},
	}

	// dedup_url
	in := len(articles)
	articles, removedURL := DeduplicateByURL(articles)
	stats[StageDedupURL] = StageStat{
		Status: StageOK, In: in, Out: len(articles),
		Detail: map[string]any{"duplicates_removed": removedURL},
	}

	// dedup_title
	in = len(articles)
	articles, dedupStats := DeduplicateByTitle(articles, o.opts.DedupThreshold)
	stats[StageDedupTitle] = StageStat{
		Status: StageOK, In: in, Out: len(articles),
		Detail: map[string]any{
			"duplicates_removed": dedupStats.DuplicatesRemoved,
			"duplicate_groups":   dedupStats.DuplicateGroups,
		},
	}

	// resolve_dates
	in = len(articles)
	articles, dateStats := o.resolver.ResolveAll(ctx, articles)
	stats[StageResolveDates] = StageStat{
		Status: StageOK, In: in, Out: len(articles),
		Detail: map[string]any{
			"with_dates":     dateStats.WithDates,
			"without_dates":  dateStats.WithoutDates,
			"via_metadata":   dateStats.ViaMetadata,
			"via_classifier": dateStats.ViaClassifier,
			"via_pattern":    dateStats.ViaPattern,
		},
	}

	// filter_date_range
	in = len(articles)
	articles, removedRange := FilterByDateRange(articles, req.Start, req.End, o.opts.RangePolicies)
	stats[StageFilterDateRange] = StageStat{
		Status: StageOK, In: in, Out: len(articles),
		Detail: map[string]any{"removed": removedRange, "policies": o.opts.RangePolicies},
	}

	// prefilter_keywords
	in = len(articles)
	articles, removedPrefilter := PrefilterByKeywords(articles, req.Keywords, o.opts.PrefilterSliceLen)
	stats[StagePrefilter] = StageStat{
		Status: StageOK, In: in, Out: len(articles),
		Detail: map[string]any{"removed": removedPrefilter},
	}

	// classify_relevance + filter_relevance
	classifierRan := false
	if o.classifier == nil {
		stats[StageClassify] = StageStat{
			Status: StageSkipped, In: len(articles), Out: len(articles),
			Reason: "classifier not configured",
		}
		stats[StageFilterRelevance] = StageStat{
			Status: StageSkipped, In: len(articles), Out: len(articles),
			Reason: "classifier not configured",
		}
	} else {
		classifierRan = true

		in = len(articles)
		var detail map[string]any
		articles, detail = ClassifyRelevance(ctx, o.classifier, articles, RelevanceOptions{
			Keywords:      req.Keywords,
			SearchContext: req.SearchContext,
			Floor:         o.opts.RelevanceFloor,
			BatchSize:     o.opts.ClassifierBatch,
			Pacing:        o.opts.ClassifierPacing,
			SliceLen:      o.opts.PrefilterSliceLen,
		}, o.logger)
		stats[StageClassify] = StageStat{Status: StageOK, In: in, Out: len(articles), Detail: detail}

		in = len(articles)
		var removedFloor int
		articles, removedFloor = FilterByRelevanceFloor(articles, o.opts.RelevanceFloor)
		stats[StageFilterRelevance] = StageStat{
			Status: StageOK, In: in, Out: len(articles),
			Detail: map[string]any{"removed": removedFloor, "floor": o.opts.RelevanceFloor},
		}
	}

	// score_rank
	in = len(articles)
	articles = ScoreAndRank(articles, req.Keywords, classifierRan)
	stats[StageScoreRank] = StageStat{Status: StageOK, In: in, Out: len(articles)}

	// highlight
	ranked := make([]RankedArticle, 0, len(articles))
	for i, a := range articles {
		ranked = append(ranked, o.toRanked(a, i+1, req.Keywords))
	}
	stats[StageHighlight] = StageStat{Status: StageOK, In: len(articles), Out: len(ranked)}

	// finalize
	bySource := groupBySource(ranked)
	stats[StageFinalize] = StageStat{Status: StageOK, In: len(ranked), Out: len(ranked)}

	result.Success = true
	result.Results = ranked
	result.ResultsBySource = bySource
	return result
}

// collect fans out to every adapter concurrently; they share no mutable
// state, so this is the one place parallelism pays. A source that fails
// outright contributes nothing; a source that returns zero articles for a
// multi-keyword query is retried once with the leading keyword only.
func (o *Orchestrator) collect(ctx context.Context, req Request) ([]Article, int) {
	type sourceResult struct {
		articles []Article
		err      error
		name     string
	}

	results := make([]sourceResult, len(o.adapters))
	var wg sync.WaitGroup
	for i, adapter := range o.adapters {
		wg.Add(1)
		go func(i int, adapter SourceAdapter) {
			defer wg.Done()
			articles, err := adapter.Search(ctx, req.Keywords, req.Start, req.End)
			if err == nil && len(articles) == 0 && len(req.Keywords) > 1 {
				o.logger.Debug().Str("source", adapter.Name()).Msg("empty result; retrying with widened query")
				articles, err = adapter.Search(ctx, req.Keywords[:1], req.Start, req.End)
			}
			results[i] = sourceResult{articles: articles, err: err, name: adapter.Name()}
		}(i, adapter)
	}
	wg.Wait()

	var collected []Article
	sourceErrors := 0
	for _, res := range results {
		if res.err != nil {
			sourceErrors++
			o.logger.Warn().Err(res.err).Str("source", res.name).Msg("source unavailable; contributing zero articles")
			continue
		}
		collected = append(collected, res.articles...)
	}

	if o.opts.DetectLanguage != nil {
		for i := range collected {
			if collected[i].Language == "" {
				collected[i].Language = o.opts.DetectLanguage(collected[i].Title + " " + firstChars(collected[i].Content, 400))
			}
		}
	}

	return collected, sourceErrors
}

func (o *Orchestrator) toRanked(a Article, rank int, keywords []string) RankedArticle {
	summary := a.Commentary.Summary
	if summary == "" {
		summary = firstChars(a.Content, summaryExcerptLen)
	}

	date := ""
	if a.ResolvedDate != nil {
		date = a.ResolvedDate.Format("2006-01-02")
	}

	return RankedArticle{
		Rank:               rank,
		Title:              a.Title,
		Summary:            summary,
		HighlightedSummary: HighlightKeywords(summary, keywords),
		URL:                a.URL,
		Date:               date,
		Source:             a.Source,
		SourceName:         a.SourceName,
		Authors:            a.Authors,
		Journal:            a.Journal,
		Language:           a.Language,
		RelevanceScore:     a.RelevanceScore,
		CompositeScore:     a.CompositeScore,
		ScoringBreakdown:   a.Breakdown,
		Commentary:         a.Commentary,
	}
}

func groupBySource(ranked []RankedArticle) SourceBreakdown {
	groups := make(map[string][]RankedArticle)
	counts := make(map[string]int)
	for _, r := range ranked {
		name := r.SourceName
		if name == "" {
			name = string(r.Source)
		}
		groups[name] = append(groups[name], r)
		counts[name]++
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	return SourceBreakdown{
		Sources: groups,
		Metadata: BreakdownMetadata{
			TotalSources: len(names),
			TotalResults: len(ranked),
			Counts:       counts,
		},
	}
}
