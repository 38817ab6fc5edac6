package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Source identifies the kind of upstream provider an article came from.
type Source string

const (
	SourceLiterature Source = "literature"
	SourceNeural     Source = "neural_search"
	SourceWeb        Source = "web_search"
)

// DateMethod records which resolution strategy produced an article's date.
type DateMethod string

const (
	DateFromMetadata   DateMethod = "metadata"
	DateFromClassifier DateMethod = "classifier"
	DateFromPattern    DateMethod = "pattern"
	DateNone           DateMethod = "none"
)

// Article is the mutable record flowing through the pipeline. Adapters
// construct one per retrieved hit; stages mutate fields in place or drop the
// article.
type Article struct {
	Title      string
	Content    string
	URL        string
	Source     Source
	SourceName string

	// Passthrough display fields, never consulted by filtering logic.
	Authors  string
	Journal  string
	Language string

	RawDate      string
	ResolvedDate *time.Time
	DateMethod   DateMethod

	RelevanceScore *int
	Commentary     Commentary

	CompositeScore int
	Breakdown      ScoreBreakdown
}

// Commentary is the structured explanation attached to a relevance judgment.
type Commentary struct {
	Reason               string   `json:"reason"`
	Type                 string   `json:"type"`
	ClinicalSignificance string   `json:"clinical_significance"`
	RegulatoryImpact     string   `json:"regulatory_impact"`
	MarketImpact         string   `json:"market_impact"`
	Summary              string   `json:"summary"`
	MentionedKeywords    []string `json:"mentioned_keywords"`
}

// Judgment is a parsed classifier verdict for one article.
type Judgment struct {
	Score      int
	Commentary Commentary
}

// Classifier is the external capability boundary for relevance judgment and
// date extraction. Implementations must never return an empty success: a
// response that cannot be parsed into judgments surfaces as *StructuralError.
type Classifier interface {
	// Classify judges a batch of articles in a single upstream call and
	// returns one judgment per article, in input order.
	Classify(ctx context.Context, batch []Article, keywords []string, searchContext string) ([]Judgment, error)

	// ExtractDate asks for a single publication date for the article,
	// returned as YYYY-MM-DD, or "none" when the model cannot tell.
	ExtractDate(ctx context.Context, article Article) (string, error)
}

// StructuralError reports classifier output that could not be parsed into the
// expected judgment shape. Callers treat it as "judgment unknown", never as
// "irrelevant".
type StructuralError struct {
	RawText string
	Err     error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier output unparsable: %v", e.Err)
	}
	return "classifier output unparsable"
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ScoreBreakdown keeps every composite-score term so rank order stays
// explainable after the fact.
type ScoreBreakdown struct {
	Base            int `json:"base"`
	DomainBonus     int `json:"domain_bonus"`
	TitleBonus      int `json:"title_bonus"`
	ClassifierBonus int `json:"classifier_bonus"`
	SourceBonus     int `json:"source_bonus"`
	Total           int `json:"total"`
}

// DedupStats summarizes one title-deduplication pass.
type DedupStats struct {
	DuplicatesRemoved int `json:"duplicates_removed"`
	UniqueArticles    int `json:"unique_articles"`
	DuplicateGroups   int `json:"duplicate_groups"`
}

// DateStats summarizes one date-resolution pass.
type DateStats struct {
	WithDates     int `json:"with_dates"`
	WithoutDates  int `json:"without_dates"`
	ViaMetadata   int `json:"via_metadata"`
	ViaClassifier int `json:"via_classifier"`
	ViaPattern    int `json:"via_pattern"`
}

// StageStatus is the recorded outcome of a pipeline stage.
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

// StageStat is the per-stage audit record carried into the final payload.
type StageStat struct {
	Status StageStatus    `json:"status"`
	In     int            `json:"in"`
	Out    int            `json:"out"`
	Reason string         `json:"reason,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// RankedArticle is the presentation-facing projection of a surviving article.
type RankedArticle struct {
	Rank               int            `json:"rank"`
	Title              string         `json:"title"`
	Summary            string         `json:"summary"`
	HighlightedSummary string         `json:"highlighted_summary"`
	URL                string         `json:"url"`
	Date               string         `json:"date"`
	Source             Source         `json:"source"`
	SourceName         string         `json:"source_name"`
	Authors            string         `json:"authors,omitempty"`
	Journal            string         `json:"journal,omitempty"`
	Language           string         `json:"language,omitempty"`
	RelevanceScore     *int           `json:"relevance_score,omitempty"`
	CompositeScore     int            `json:"composite_score"`
	ScoringBreakdown   ScoreBreakdown `json:"scoring_breakdown"`
	Commentary         Commentary     `json:"commentary"`
}

// SourceBreakdown groups the ranked results by human-readable source name.
type SourceBreakdown struct {
	Sources  map[string][]RankedArticle `json:"sources"`
	Metadata BreakdownMetadata          `json:"metadata"`
}

// BreakdownMetadata carries the per-source counts shown next to the grouping.
type BreakdownMetadata struct {
	TotalSources int            `json:"total_sources"`
	TotalResults int            `json:"total_results"`
	Counts       map[string]int `json:"counts"`
}

// Result is the full pipeline payload handed to the presentation layer.
type Result struct {
	Success         bool                 `json:"success"`
	SessionID       string               `json:"session_id,omitempty"`
	Results         []RankedArticle      `json:"results"`
	ResultsBySource SourceBreakdown      `json:"results_by_source"`
	StageStats      map[string]StageStat `json:"stage_stats"`
	Error           string               `json:"error,omitempty"`
}
