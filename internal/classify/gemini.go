// Package classify implements the external classifier capability on top of
// the Gemini API: batched relevance judgment and single-article date
// extraction, both in JSON mode with locally re-validated output.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"pharma.fit/pharmascout/internal/pipeline"
	judgmentschema "pharma.fit/pharmascout/schema"
)

const (
	relevanceSystemInstruction = `You are a pharmaceutical intelligence analyst. For each numbered article you receive, judge how relevant it is to the given search keywords and context on a 0-100 scale.

Score 80-100 for articles squarely about the keywords with concrete clinical, regulatory or market substance. Score 40-79 for related but peripheral coverage. Score 0-39 for incidental mentions or unrelated content.

For every article, return one judgment object with:
- score: the 0-100 relevance score
- reason: one sentence explaining the score
- type: one of "clinical", "regulatory", "market", "research", "other"
- clinical_significance, regulatory_impact, market_impact: one short sentence each, or an empty string when not applicable
- summary: a 2-3 sentence neutral summary of the article
- mentioned_keywords: the subset of the search keywords actually present

Return exactly one judgment per article, in the same order as the input.`

	dateSystemInstruction = `You extract publication dates. Given an article's title, URL, leading content and source metadata, reply with the publication date as a bare YYYY-MM-DD string. If you cannot determine it with confidence, reply with exactly: none

Never guess, never explain, never return anything except the date or the word none.`

	defaultCallTimeout = 60 * time.Second
)

// Client is a Gemini-backed pipeline.Classifier.
type Client struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

func New(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("gemini model name is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: model, logger: logger}, nil
}

// Classify judges a batch of articles in one upstream call. Any response that
// fails schema validation or does not carry one judgment per article is
// returned as *pipeline.StructuralError with the raw text attached.
func (c *Client) Classify(ctx context.Context, batch []pipeline.Article, keywords []string, searchContext string) ([]pipeline.Judgment, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	prompt := buildRelevancePrompt(batch, keywords, searchContext)
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: relevanceSystemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    judgmentResponseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini classify call failed: %w", err)
	}

	rawText := resp.Text()
	items, err := judgmentschema.ValidateJudgmentBatch(json.RawMessage(rawText))
	if err != nil {
		return nil, &pipeline.StructuralError{RawText: rawText, Err: err}
	}
	if len(items) != len(batch) {
		return nil, &pipeline.StructuralError{
			RawText: rawText,
			Err:     fmt.Errorf("expected %d judgments, got %d", len(batch), len(items)),
		}
	}

	judgments := make([]pipeline.Judgment, 0, len(items))
	for _, item := range items {
		judgments = append(judgments, pipeline.Judgment{
			Score: item.Score,
			Commentary: pipeline.Commentary{
				Reason:               item.Reason,
				Type:                 item.Type,
				ClinicalSignificance: item.ClinicalSignificance,
				RegulatoryImpact:     item.RegulatoryImpact,
				MarketImpact:         item.MarketImpact,
				Summary:              item.Summary,
				MentionedKeywords:    item.MentionedKeywords,
			},
		})
	}
	return judgments, nil
}

// ExtractDate asks for a single publication date. Callers validate the
// answer syntactically; anything but a date or the "none" sentinel is treated
// as not found.
func (c *Client) ExtractDate(ctx context.Context, article pipeline.Article) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", article.Title)
	fmt.Fprintf(&b, "URL: %s\n", article.URL)
	if article.Journal != "" {
		fmt.Fprintf(&b, "Source metadata: %s\n", article.Journal)
	}
	if article.RawDate != "" {
		fmt.Fprintf(&b, "Raw date string: %s\n", article.RawDate)
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", article.Content)

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: b.String()}}},
	}

	resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: dateSystemInstruction}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini date call failed: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

func buildRelevancePrompt(batch []pipeline.Article, keywords []string, searchContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search keywords: %s\n", strings.Join(keywords, ", "))
	if strings.TrimSpace(searchContext) != "" {
		fmt.Fprintf(&b, "Search context: %s\n", searchContext)
	}
	fmt.Fprintf(&b, "\nArticles (%d):\n", len(batch))
	for i, a := range batch {
		fmt.Fprintf(&b, "\n--- Article %d ---\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", a.Title)
		fmt.Fprintf(&b, "URL: %s\n", a.URL)
		if a.Journal != "" {
			fmt.Fprintf(&b, "Journal: %s\n", a.Journal)
		}
		fmt.Fprintf(&b, "Content: %s\n", a.Content)
	}
	return b.String()
}

func judgmentResponseSchema() *genai.Schema {
	judgmentSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":                 {Type: genai.TypeInteger, Description: "Relevance score 0-100."},
			"reason":                {Type: genai.TypeString, Description: "One-sentence justification."},
			"type":                  {Type: genai.TypeString, Description: "clinical, regulatory, market, research or other."},
			"clinical_significance": {Type: genai.TypeString},
			"regulatory_impact":     {Type: genai.TypeString},
			"market_impact":         {Type: genai.TypeString},
			"summary":               {Type: genai.TypeString, Description: "Neutral 2-3 sentence summary."},
			"mentioned_keywords":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"score", "reason", "summary"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"judgments": {
				Type:  genai.TypeArray,
				Items: judgmentSchema,
			},
		},
		Required: []string{"judgments"},
	}
}
