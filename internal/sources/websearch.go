package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/pipeline"
	"pharma.fit/pharmascout/internal/reader"
)

const (
	webPageByteLimit = 4 * 1024 * 1024

	// Result pages carry snippets, not articles. Hits with snippets shorter
	// than this get one readability fetch of the target page.
	thinSnippetLen   = 120
	maxExcerptFetch  = 10
	excerptFetchWait = 200 * time.Millisecond
)

// WebAdapter scrapes an HTML search results page for news hits. Result markup
// is selector-driven so a self-hosted metasearch instance (SearXNG and
// friends) can be swapped in by configuration alone.
type WebAdapter struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger

	// EnrichThinSnippets controls whether short snippets trigger a
	// readability fetch of the article page.
	EnrichThinSnippets bool
}

func NewWebAdapter(endpoint string, timeout time.Duration, logger zerolog.Logger) *WebAdapter {
	return &WebAdapter{
		endpoint:           strings.TrimSpace(endpoint),
		client:             newHTTPClient(timeout),
		logger:             logger,
		EnrichThinSnippets: true,
	}
}

func (a *WebAdapter) Name() string            { return "Web Search" }
func (a *WebAdapter) Source() pipeline.Source { return pipeline.SourceWeb }

func (a *WebAdapter) Search(ctx context.Context, keywords []string, start, end time.Time) ([]pipeline.Article, error) {
	if a.endpoint == "" {
		return nil, nil
	}

	searchURL, err := a.buildSearchURL(keywords)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build web search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("web search status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, webPageByteLimit))
	if err != nil {
		return nil, fmt.Errorf("parse web search page: %w", err)
	}

	articles := a.parseResults(doc)
	if a.EnrichThinSnippets {
		a.enrich(ctx, articles)
	}
	return articles, nil
}

func (a *WebAdapter) buildSearchURL(keywords []string) (string, error) {
	base, err := url.Parse(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse web search endpoint: %w", err)
	}

	query := base.Query()
	query.Set("q", joinQuery(keywords))
	query.Set("format", "html")
	base.RawQuery = query.Encode()
	return base.String(), nil
}

// parseResults walks the common metasearch result layout: one container per
// hit with a title link, a snippet paragraph and an optional time element.
func (a *WebAdapter) parseResults(doc *goquery.Document) []pipeline.Article {
	var articles []pipeline.Article

	doc.Find("article.result, div.result, li.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("h3 a, h2 a, a.url_header").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = strings.TrimSpace(sel.Find("h3, h2").First().Text())
		}

		href = strings.TrimSpace(href)
		if href == "" || title == "" {
			return true
		}

		snippet := strings.TrimSpace(sel.Find("p.content, p.result-content, p.snippet").First().Text())
		rawDate, _ := sel.Find("time").First().Attr("datetime")
		if rawDate == "" {
			rawDate = strings.TrimSpace(sel.Find("time").First().Text())
		}

		articles = append(articles, pipeline.Article{
			Title:      title,
			Content:    snippet,
			URL:        href,
			Source:     pipeline.SourceWeb,
			SourceName: a.Name(),
			RawDate:    strings.TrimSpace(rawDate),
		})
		return len(articles) < maxArticlesPerSource
	})

	return articles
}

// enrich replaces thin snippets with readable text fetched from the article
// page. Failures leave the snippet in place; the fetch budget is bounded so
// one run cannot hammer result hosts.
func (a *WebAdapter) enrich(ctx context.Context, articles []pipeline.Article) {
	fetched := 0
	for i := range articles {
		if fetched >= maxExcerptFetch {
			return
		}
		if len(articles[i].Content) >= thinSnippetLen {
			continue
		}

		text, err := reader.FetchTextWithOptions(ctx, articles[i].URL, articles[i].Title, reader.FetchOptions{
			HTTPClient: a.client,
			UserAgent:  userAgent,
		})
		fetched++
		if err != nil {
			a.logger.Debug().Err(err).Str("url", articles[i].URL).Msg("excerpt fetch failed; keeping snippet")
			continue
		}
		articles[i].Content = text

		select {
		case <-ctx.Done():
			return
		case <-time.After(excerptFetchWait):
		}
	}
}
