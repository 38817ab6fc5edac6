// Package sources holds the provider adapters that feed the pipeline.
// Each adapter normalizes one upstream into pipeline.Article records and
// treats its own failures as "zero articles", never as a run failure.
package sources

import (
	"net/http"
	"strings"
	"time"
)

const (
	userAgent = "pharmascout/1.0 (+https://pharma.fit/pharmascout)"

	// Hard cap per adapter per run. Keeps a misbehaving upstream from
	// flooding the in-memory batch.
	maxArticlesPerSource = 200

	defaultHTTPTimeout = 20 * time.Second
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// matchesAnyKeyword reports whether any keyword appears in the text,
// case-insensitively. Empty keyword lists match everything.
func matchesAnyKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func joinQuery(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			parts = append(parts, kw)
		}
	}
	return strings.Join(parts, " ")
}
