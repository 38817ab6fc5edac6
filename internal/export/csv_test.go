package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"pharma.fit/pharmascout/internal/pipeline"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	score := 85
	results := []pipeline.RankedArticle{
		{
			Rank:           1,
			Title:          "Title, with comma",
			Summary:        "Summary line",
			Source:         pipeline.SourceLiterature,
			Date:           "2024-03-05",
			URL:            "https://example.com/a",
			RelevanceScore: &score,
		},
		{
			Rank:    2,
			Title:   "Unscored",
			Summary: "No classifier ran",
			Source:  pipeline.SourceWeb,
			Date:    "2024-03-06",
			URL:     "https://example.com/b",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want header + 2 rows", len(records))
	}

	for i, want := range CSVHeader {
		if records[0][i] != want {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], want)
		}
	}
	if records[1][1] != "Title, with comma" {
		t.Fatalf("comma in title not preserved: %q", records[1][1])
	}
	if records[1][6] != "85" {
		t.Fatalf("relevance column = %q, want 85", records[1][6])
	}
	if records[2][6] != "" {
		t.Fatalf("unscored relevance column = %q, want empty", records[2][6])
	}
}

func TestWriteCSVEmptyResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want header only", len(records))
	}
}
