// Package export renders ranked results in the tabular formats shared by the
// CLI and the HTTP API.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"pharma.fit/pharmascout/internal/pipeline"
)

// CSVHeader is the fixed column order of a result export.
var CSVHeader = []string{"Rank", "Title", "Summary", "Source", "Date", "URL", "Relevance Score"}

// WriteCSV streams the ranked results as CSV, header first. A result without
// a relevance score (classifier skipped) leaves the column empty rather than
// printing a fake zero.
func WriteCSV(w io.Writer, results []pipeline.RankedArticle) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		relevance := ""
		if r.RelevanceScore != nil {
			relevance = strconv.Itoa(*r.RelevanceScore)
		}
		record := []string{
			strconv.Itoa(r.Rank),
			r.Title,
			r.Summary,
			string(r.Source),
			r.Date,
			r.URL,
			relevance,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.Rank, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
