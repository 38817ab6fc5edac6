package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Pipeline tunables.
	DedupThreshold    float64       `envconfig:"PS_DEDUP_THRESHOLD" default:"0.75"`
	RelevanceFloor    int           `envconfig:"PS_RELEVANCE_FLOOR" default:"40"`
	LenientBufferDays int           `envconfig:"PS_LENIENT_BUFFER_DAYS" default:"30"`
	PrefilterSliceLen int           `envconfig:"PS_PREFILTER_SLICE_LEN" default:"2000"`
	CacheCapacity     int           `envconfig:"PS_CACHE_CAPACITY" default:"10"`
	ClassifierPacing  time.Duration `envconfig:"PS_CLASSIFIER_PACING" default:"500ms"`
	ClassifierBatch   int           `envconfig:"PS_CLASSIFIER_BATCH" default:"5"`

	// Classifier capability. An empty API key means the classifier is not
	// configured and classification stages are recorded as skipped.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Source adapters.
	LiteratureFeeds   string        `envconfig:"PS_LITERATURE_FEEDS" default:""`
	NeuralSearchURL   string        `envconfig:"PS_NEURAL_SEARCH_URL" default:""`
	NeuralSearchKey   string        `envconfig:"PS_NEURAL_SEARCH_KEY" default:""`
	WebSearchURL      string        `envconfig:"PS_WEB_SEARCH_URL" default:""`
	SourceHTTPTimeout time.Duration `envconfig:"PS_SOURCE_HTTP_TIMEOUT" default:"20s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DedupThreshold < 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("PS_DEDUP_THRESHOLD must be within [0,1]")
	}
	if c.RelevanceFloor < 0 || c.RelevanceFloor > 100 {
		return fmt.Errorf("PS_RELEVANCE_FLOOR must be within [0,100]")
	}
	if c.LenientBufferDays < 0 {
		return fmt.Errorf("PS_LENIENT_BUFFER_DAYS must be >= 0")
	}
	if c.PrefilterSliceLen < 1 {
		return fmt.Errorf("PS_PREFILTER_SLICE_LEN must be >= 1")
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("PS_CACHE_CAPACITY must be >= 1")
	}
	if c.ClassifierPacing < 0 {
		return fmt.Errorf("PS_CLASSIFIER_PACING must be >= 0")
	}
	if c.ClassifierBatch < 1 {
		return fmt.Errorf("PS_CLASSIFIER_BATCH must be >= 1")
	}
	if c.SourceHTTPTimeout <= 0 {
		return fmt.Errorf("PS_SOURCE_HTTP_TIMEOUT must be > 0")
	}
	return nil
}

// ClassifierConfigured reports whether the external classifier capability is
// usable for this process.
func (c *Config) ClassifierConfigured() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

// LiteratureFeedList splits the configured comma-separated feed URLs,
// dropping blanks and duplicates while preserving order.
func (c *Config) LiteratureFeedList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.LiteratureFeeds, ",")
	feeds := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		feed := strings.TrimSpace(part)
		if feed == "" {
			continue
		}
		if _, exists := seen[feed]; exists {
			continue
		}
		seen[feed] = struct{}{}
		feeds = append(feeds, feed)
	}
	return feeds
}
