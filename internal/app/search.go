package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"pharma.fit/pharmascout/internal/cli"
	"pharma.fit/pharmascout/internal/config"
	"pharma.fit/pharmascout/internal/export"
	"pharma.fit/pharmascout/internal/logging"
	"pharma.fit/pharmascout/internal/pipeline"
)

const tableSummaryLen = 80

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	keywordsFlag := fs.String("keywords", "", "Comma-separated search keywords (required)")
	fromFlag := fs.String("from", "", "Range start, YYYY-MM-DD")
	toFlag := fs.String("to", "", "Range end, YYYY-MM-DD")
	contextFlag := fs.String("context", "", "Free-text search context passed to the classifier")
	formatFlag := fs.String("format", "table", "Output format: table, json or csv")
	timeoutFlag := fs.Duration("timeout", 10*time.Minute, "Overall run timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	keywords := splitKeywords(*keywordsFlag)
	if len(keywords) == 0 {
		fmt.Fprintln(os.Stderr, "--keywords is required")
		return 2
	}

	format := strings.ToLower(strings.TrimSpace(*formatFlag))
	switch format {
	case "table", "json", "csv":
	default:
		fmt.Fprintln(os.Stderr, "--format must be table, json or csv")
		return 2
	}

	start, err := parseDayFlag(*fromFlag, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "--from must be YYYY-MM-DD")
		return 2
	}
	end, err := parseDayFlag(*toFlag, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "--to must be YYYY-MM-DD")
		return 2
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		fmt.Fprintln(os.Stderr, "--from must be <= --to")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	orchestrator, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("search setup failed")
		fmt.Fprintf(os.Stderr, "Search setup failed: %v\n", err)
		return 1
	}

	result := orchestrator.Run(ctx, pipeline.Request{
		Keywords:      keywords,
		Start:         start,
		End:           end,
		SearchContext: strings.TrimSpace(*contextFlag),
	})

	if !result.Success {
		logger.Error().Str("error", result.Error).Msg("search run failed")
		fmt.Fprintf(os.Stderr, "Search failed: %s\n", result.Error)
		return 1
	}

	if err := printResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print results: %v\n", err)
		return 1
	}
	return 0
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		kw := strings.TrimSpace(part)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func parseDayFlag(raw string, endOfDay bool) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		day = day.Add((24 * time.Hour) - time.Nanosecond)
	}
	return day, nil
}

func printResult(w *os.File, result pipeline.Result, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "csv":
		return export.WriteCSV(w, result.Results)
	default:
		return printTable(w, result)
	}
}

func printTable(w *os.File, result pipeline.Result) error {
	if len(result.Results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tDATE\tSOURCE\tTITLE")
	for _, r := range result.Results {
		title := r.Title
		if len(title) > tableSummaryLen {
			title = title[:tableSummaryLen] + "..."
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.Rank, r.CompositeScore, r.Date, r.SourceName, title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d results across %d sources\n",
		result.ResultsBySource.Metadata.TotalResults,
		result.ResultsBySource.Metadata.TotalSources)
	return nil
}
