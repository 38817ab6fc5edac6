package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/pipeline"
	"pharma.fit/pharmascout/internal/sessioncache"
)

type stubRunner struct {
	result   pipeline.Result
	lastReq  pipeline.Request
	runCount int
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) pipeline.Result {
	s.lastReq = req
	s.runCount++
	result := s.result
	result.SessionID = req.SessionID
	return result
}

func newTestServer(runner *stubRunner) (*Server, *sessioncache.Cache) {
	cache := sessioncache.New(10)
	srv := NewServer(runner, cache, zerolog.Nop(), Options{})
	return srv, cache
}

func postSearch(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := srv.handleSearch(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handleSearch: %v", err)
	}
	return rec
}

func TestHandleSearchValidation(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{Success: true}}
	srv, _ := newTestServer(runner)

	cases := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"no keywords", `{"keywords": []}`},
		{"blank keywords", `{"keywords": ["  ", ""]}`},
		{"bad start date", `{"keywords": ["a"], "start_date": "03/05/2024"}`},
		{"bad end date", `{"keywords": ["a"], "end_date": "yesterday"}`},
		{"inverted range", `{"keywords": ["a"], "start_date": "2024-02-01", "end_date": "2024-01-01"}`},
	}
	for _, tc := range cases {
		rec := postSearch(t, srv, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
	if runner.runCount != 0 {
		t.Fatalf("pipeline ran %d times on invalid input, want 0", runner.runCount)
	}
}

func TestHandleSearchRunsAndCaches(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{
		Success: true,
		Results: []pipeline.RankedArticle{{Rank: 1, Title: "hit"}},
	}}
	srv, cache := newTestServer(runner)

	rec := postSearch(t, srv, `{"keywords": [" semaglutide ", "obesity"], "start_date": "2024-03-01", "end_date": "2024-03-31", "search_context": "GLP-1 market"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	if got := runner.lastReq.Keywords; len(got) != 2 || got[0] != "semaglutide" {
		t.Fatalf("keywords = %v, want trimmed pair", got)
	}
	if runner.lastReq.SearchContext != "GLP-1 market" {
		t.Fatalf("search context = %q", runner.lastReq.SearchContext)
	}
	wantStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !runner.lastReq.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", runner.lastReq.Start, wantStart)
	}
	if runner.lastReq.End.Day() != 31 || runner.lastReq.End.Hour() != 23 {
		t.Fatalf("end = %v, want last instant of March 31", runner.lastReq.End)
	}
	if runner.lastReq.SessionID == "" {
		t.Fatalf("session id not assigned")
	}

	var envelope struct {
		Status string          `json:"status"`
		Data   pipeline.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Status != "success" {
		t.Fatalf("status = %q, want success", envelope.Status)
	}

	if _, ok := cache.Get(envelope.Data.SessionID); !ok {
		t.Fatalf("result not cached under session id %q", envelope.Data.SessionID)
	}
}

func TestHandleSearchPipelineFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{Success: false, Error: "pipeline stage failed: boom"}}
	srv, cache := newTestServer(runner)

	rec := postSearch(t, srv, `{"keywords": ["a"]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// Failed runs stay inspectable through the session endpoints.
	if cache.Len() != 1 {
		t.Fatalf("cache.Len() = %d, want failed run cached", cache.Len())
	}
}

func TestHandleSession(t *testing.T) {
	t.Parallel()

	srv, cache := newTestServer(&stubRunner{})
	cache.Put("abc", pipeline.Result{Success: true, SessionID: "abc"})

	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("abc")
	if err := srv.handleSession(c); err != nil {
		t.Fatalf("handleSession: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("missing")
	if err := srv.handleSession(c); err != nil {
		t.Fatalf("handleSession: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSessionExportCSV(t *testing.T) {
	t.Parallel()

	srv, cache := newTestServer(&stubRunner{})
	score := 77
	cache.Put("abc", pipeline.Result{
		Success:   true,
		SessionID: "abc",
		Results: []pipeline.RankedArticle{{
			Rank:           1,
			Title:          "Exported",
			Summary:        "Row",
			Source:         pipeline.SourceNeural,
			Date:           "2024-03-05",
			URL:            "https://example.com",
			RelevanceScore: &score,
		}},
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc/export.csv", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("abc")
	if err := srv.handleSessionExport(c); err != nil {
		t.Fatalf("handleSessionExport: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q, want text/csv", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want header + 1 row", len(records))
	}
	if records[1][0] != "1" || records[1][6] != "77" {
		t.Fatalf("row = %v", records[1])
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	if got, err := parseDate("", false); err != nil || !got.IsZero() {
		t.Fatalf("empty date: got %v, %v", got, err)
	}

	start, err := parseDate("2024-03-01", false)
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	if start.Hour() != 0 {
		t.Fatalf("start hour = %d, want 0", start.Hour())
	}

	end, err := parseDate("2024-03-01", true)
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	if end.Hour() != 23 || end.Day() != 1 {
		t.Fatalf("end = %v, want last instant of the same day", end)
	}

	if _, err := parseDate("03/01/2024", false); err == nil {
		t.Fatalf("want error for non-ISO date")
	}
}
