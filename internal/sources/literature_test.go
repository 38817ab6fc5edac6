package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/pipeline"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Journal of Examples</title>
    <item>
      <title>Semaglutide outcomes in a phase 3 trial</title>
      <link>https://journal.example.com/articles/1</link>
      <description>The semaglutide arm showed improvement.</description>
      <author>jane@example.com (Jane Doe)</author>
      <pubDate>Tue, 05 Mar 2024 08:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Unrelated editorial</title>
      <link>https://journal.example.com/articles/2</link>
      <description>Nothing about the search terms here.</description>
    </item>
  </channel>
</rss>`

func TestLiteratureAdapterSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	adapter := NewLiteratureAdapter([]string{srv.URL}, 5*time.Second, zerolog.Nop())
	articles, err := adapter.Search(context.Background(), []string{"semaglutide"}, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("len(articles) = %d, want 1 (non-matching item filtered)", len(articles))
	}
	got := articles[0]
	if got.Title != "Semaglutide outcomes in a phase 3 trial" {
		t.Fatalf("Title = %q", got.Title)
	}
	if got.URL != "https://journal.example.com/articles/1" {
		t.Fatalf("URL = %q", got.URL)
	}
	if got.Journal != "Journal of Examples" {
		t.Fatalf("Journal = %q", got.Journal)
	}
	if got.RawDate == "" {
		t.Fatalf("RawDate not carried from pubDate")
	}
	if got.Source != pipeline.SourceLiterature {
		t.Fatalf("Source = %q", got.Source)
	}
}

func TestLiteratureAdapterUnavailableFeedSkipped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewLiteratureAdapter([]string{srv.URL}, 5*time.Second, zerolog.Nop())
	articles, err := adapter.Search(context.Background(), []string{"anything"}, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("a failed feed must not fail the search: %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("len(articles) = %d, want 0", len(articles))
	}
}

func TestLiteratureAdapterNoFeeds(t *testing.T) {
	t.Parallel()

	adapter := NewLiteratureAdapter(nil, 5*time.Second, zerolog.Nop())
	articles, err := adapter.Search(context.Background(), []string{"x"}, time.Time{}, time.Time{})
	if err != nil || articles != nil {
		t.Fatalf("got %v, %v; want nil, nil", articles, err)
	}
}
