package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/classify"
	"pharma.fit/pharmascout/internal/config"
	"pharma.fit/pharmascout/internal/langdetect"
	"pharma.fit/pharmascout/internal/pipeline"
	"pharma.fit/pharmascout/internal/sources"
)

// buildOrchestrator wires adapters, classifier and tunables from the loaded
// configuration. Sources without configuration are simply not registered; the
// classifier is optional and its absence downgrades the relevance stages to
// skipped.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pipeline.Orchestrator, error) {
	var adapters []pipeline.SourceAdapter

	if feeds := cfg.LiteratureFeedList(); len(feeds) > 0 {
		adapters = append(adapters, sources.NewLiteratureAdapter(feeds, cfg.SourceHTTPTimeout, logger))
	}
	if cfg.NeuralSearchURL != "" {
		adapters = append(adapters, sources.NewNeuralAdapter(cfg.NeuralSearchURL, cfg.NeuralSearchKey, cfg.SourceHTTPTimeout, logger))
	}
	if cfg.WebSearchURL != "" {
		adapters = append(adapters, sources.NewWebAdapter(cfg.WebSearchURL, cfg.SourceHTTPTimeout, logger))
	}

	var classifier pipeline.Classifier
	if cfg.ClassifierConfigured() {
		client, err := classify.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize classifier: %w", err)
		}
		classifier = client
	} else {
		logger.Warn().Msg("classifier not configured; relevance stages will be skipped")
	}

	opts := pipeline.Options{
		DedupThreshold:    cfg.DedupThreshold,
		RelevanceFloor:    cfg.RelevanceFloor,
		RangePolicies:     pipeline.DefaultRangePolicies(cfg.LenientBufferDays),
		ClassifierBatch:   cfg.ClassifierBatch,
		ClassifierPacing:  cfg.ClassifierPacing,
		PrefilterSliceLen: cfg.PrefilterSliceLen,
		DetectLanguage:    langdetect.DetectISO6391,
	}

	return pipeline.NewOrchestrator(adapters, classifier, opts, logger), nil
}
