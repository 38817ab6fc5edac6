package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/pipeline"
)

const neuralResponseByteLimit = 4 * 1024 * 1024

// NeuralAdapter queries a semantic search API over a JSON POST endpoint.
// Hits often arrive without reliable dates, so this source runs under the
// lenient date-range policy.
type NeuralAdapter struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   zerolog.Logger
}

func NewNeuralAdapter(endpoint, apiKey string, timeout time.Duration, logger zerolog.Logger) *NeuralAdapter {
	return &NeuralAdapter{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   newHTTPClient(timeout),
		logger:   logger,
	}
}

func (a *NeuralAdapter) Name() string            { return "Neural Search" }
func (a *NeuralAdapter) Source() pipeline.Source { return pipeline.SourceNeural }

type neuralRequest struct {
	Query      string `json:"query"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	NumResults int    `json:"num_results"`
}

type neuralHit struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	Author        string `json:"author"`
	PublishedDate string `json:"published_date"`
}

type neuralResponse struct {
	Results []neuralHit `json:"results"`
}

func (a *NeuralAdapter) Search(ctx context.Context, keywords []string, start, end time.Time) ([]pipeline.Article, error) {
	if a.endpoint == "" {
		return nil, nil
	}

	payload := neuralRequest{
		Query:      joinQuery(keywords),
		NumResults: maxArticlesPerSource,
	}
	if !start.IsZero() {
		payload.StartDate = start.Format("2006-01-02")
	}
	if !end.IsZero() {
		payload.EndDate = end.Format("2006-01-02")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode neural request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build neural request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neural search call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("neural search status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, neuralResponseByteLimit))
	if err != nil {
		return nil, fmt.Errorf("read neural response: %w", err)
	}

	var parsed neuralResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode neural response: %w", err)
	}

	articles := make([]pipeline.Article, 0, len(parsed.Results))
	for _, hit := range parsed.Results {
		title := strings.TrimSpace(hit.Title)
		url := strings.TrimSpace(hit.URL)
		if title == "" && url == "" {
			continue
		}
		articles = append(articles, pipeline.Article{
			Title:      title,
			Content:    strings.TrimSpace(hit.Text),
			URL:        url,
			Source:     pipeline.SourceNeural,
			SourceName: a.Name(),
			Authors:    strings.TrimSpace(hit.Author),
			RawDate:    strings.TrimSpace(hit.PublishedDate),
		})
		if len(articles) >= maxArticlesPerSource {
			break
		}
	}
	return articles, nil
}
