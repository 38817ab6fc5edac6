// Package httpapi exposes the search pipeline over HTTP: one endpoint to run
// a search, session lookups against the in-memory cache, and a CSV export.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"pharma.fit/pharmascout/internal/export"
	"pharma.fit/pharmascout/internal/globaltime"
	"pharma.fit/pharmascout/internal/pipeline"
	"pharma.fit/pharmascout/internal/sessioncache"
)

// SearchRunner executes one pipeline run. *pipeline.Orchestrator satisfies it.
type SearchRunner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	runner SearchRunner
	cache  *sessioncache.Cache
	logger zerolog.Logger
	opts   Options
}

type searchRequest struct {
	Keywords      []string `json:"keywords"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	SearchContext string   `json:"search_context"`
}

func NewServer(runner SearchRunner, cache *sessioncache.Cache, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	// Pipeline runs block the request; the write timeout has to outlast a
	// full classifier pass.
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		runner: runner,
		cache:  cache,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.runner == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api")
	api.POST("/search", s.handleSearch)
	api.GET("/sessions/:session_id", s.handleSession)
	api.GET("/sessions/:session_id/export.csv", s.handleSessionExport)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("pharmascout api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("pharmascout api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "pharmascout",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	var body searchRequest
	if err := c.Bind(&body); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON search request"})
	}

	keywords := make([]string, 0, len(body.Keywords))
	for _, kw := range body.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return failValidation(c, map[string]string{"keywords": "at least one keyword is required"})
	}

	start, err := parseDate(body.StartDate, false)
	if err != nil {
		return failValidation(c, map[string]string{"start_date": "must be YYYY-MM-DD"})
	}
	end, err := parseDate(body.EndDate, true)
	if err != nil {
		return failValidation(c, map[string]string{"end_date": "must be YYYY-MM-DD"})
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return failValidation(c, map[string]string{"date_range": "start_date must be <= end_date"})
	}

	sessionID, err := newSessionID()
	if err != nil {
		s.logger.Error().Err(err).Msg("session id generation failed")
		return internalError(c, "Failed to start search session")
	}

	result := s.runner.Run(c.Request().Context(), pipeline.Request{
		SessionID:     sessionID,
		Keywords:      keywords,
		Start:         start,
		End:           end,
		SearchContext: strings.TrimSpace(body.SearchContext),
	})

	s.cache.Put(sessionID, result)

	if !result.Success {
		s.logger.Error().Str("session_id", sessionID).Str("error", result.Error).Msg("pipeline run failed")
		return internalError(c, "Search pipeline failed")
	}
	return success(c, result)
}

func (s *Server) handleSession(c echo.Context) error {
	result, err := s.lookupSession(c)
	if err != nil {
		return err
	}
	return success(c, result)
}

func (s *Server) handleSessionExport(c echo.Context) error {
	result, err := s.lookupSession(c)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "pharmascout-"+result.SessionID+".csv"))
	c.Response().WriteHeader(http.StatusOK)

	return export.WriteCSV(c.Response(), result.Results)
}

func (s *Server) lookupSession(c echo.Context) (pipeline.Result, error) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return pipeline.Result{}, failValidation(c, map[string]string{"session_id": "is required"})
	}

	result, ok := s.cache.Get(sessionID)
	if !ok {
		return pipeline.Result{}, failNotFound(c, "Session not found or expired")
	}
	return result, nil
}

func newSessionID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// parseDate parses a YYYY-MM-DD boundary. End dates snap to the last instant
// of the day so the range stays inclusive.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format")
	}
	if endOfDay {
		day = day.Add((24 * time.Hour) - time.Nanosecond)
	}
	return day, nil
}
