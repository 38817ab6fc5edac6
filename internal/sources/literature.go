package sources

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/pipeline"
)

// LiteratureAdapter pulls entries from configured journal and preprint RSS
// feeds. Feed metadata dates are authoritative here, so the downstream date
// policy for this source is strict.
type LiteratureAdapter struct {
	feeds  []string
	client *http.Client
	logger zerolog.Logger
}

func NewLiteratureAdapter(feeds []string, timeout time.Duration, logger zerolog.Logger) *LiteratureAdapter {
	return &LiteratureAdapter{
		feeds:  feeds,
		client: newHTTPClient(timeout),
		logger: logger,
	}
}

func (a *LiteratureAdapter) Name() string            { return "Literature" }
func (a *LiteratureAdapter) Source() pipeline.Source { return pipeline.SourceLiterature }

// Search fetches every configured feed concurrently and keeps the entries
// mentioning at least one keyword. A feed that fails to parse is logged and
// skipped; the remaining feeds still contribute.
func (a *LiteratureAdapter) Search(ctx context.Context, keywords []string, start, end time.Time) ([]pipeline.Article, error) {
	if len(a.feeds) == 0 {
		return nil, nil
	}

	parser := gofeed.NewParser()
	parser.Client = a.client
	parser.UserAgent = userAgent

	perFeed := make([][]pipeline.Article, len(a.feeds))
	var wg sync.WaitGroup
	for i, feedURL := range a.feeds {
		wg.Add(1)
		go func(i int, feedURL string) {
			defer wg.Done()
			feed, err := parser.ParseURLWithContext(feedURL, ctx)
			if err != nil {
				a.logger.Warn().Err(err).Str("feed", feedURL).Msg("literature feed unavailable")
				return
			}
			perFeed[i] = a.fromFeed(feed, keywords)
		}(i, feedURL)
	}
	wg.Wait()

	var articles []pipeline.Article
	for _, batch := range perFeed {
		articles = append(articles, batch...)
		if len(articles) >= maxArticlesPerSource {
			articles = articles[:maxArticlesPerSource]
			break
		}
	}
	return articles, nil
}

func (a *LiteratureAdapter) fromFeed(feed *gofeed.Feed, keywords []string) []pipeline.Article {
	journal := strings.TrimSpace(feed.Title)

	articles := make([]pipeline.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		title := strings.TrimSpace(item.Title)
		content := strings.TrimSpace(item.Content)
		if content == "" {
			content = strings.TrimSpace(item.Description)
		}

		if !matchesAnyKeyword(title+" "+content, keywords) {
			continue
		}

		rawDate := strings.TrimSpace(item.Published)
		if rawDate == "" {
			rawDate = strings.TrimSpace(item.Updated)
		}
		if rawDate == "" && item.PublishedParsed != nil {
			rawDate = item.PublishedParsed.Format(time.RFC3339)
		}

		articles = append(articles, pipeline.Article{
			Title:      title,
			Content:    content,
			URL:        strings.TrimSpace(item.Link),
			Source:     pipeline.SourceLiterature,
			SourceName: a.Name(),
			Authors:    authorLine(item),
			Journal:    journal,
			RawDate:    rawDate,
		})
	}
	return articles
}

func authorLine(item *gofeed.Item) string {
	names := make([]string, 0, len(item.Authors))
	for _, person := range item.Authors {
		if person == nil {
			continue
		}
		name := strings.TrimSpace(person.Name)
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
