// Package server exposes the acquisition pipeline as a small JSON-over-HTTP
// tool API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aokana/wikiharvest/internal/assemble"
	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/harvest"
	"github.com/aokana/wikiharvest/internal/types"
)

// Server serves the tool API over a plain mux.
type Server struct {
	mux       *http.ServeMux
	cfg       *config.ServerConfig
	logger    *slog.Logger
	harvester *harvest.Harvester
}

// NewServer wires the API around a harvester.
func NewServer(cfg *config.ServerConfig, harvester *harvest.Harvester, logger *slog.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		logger:    logger.With("component", "server"),
		harvester: harvester,
	}
	s.registerRoutes()
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/fetch", s.handleFetch)
	s.mux.HandleFunc("POST /api/capture", s.handleCapture)
	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/titles", s.handleTitles)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.ok(w, map[string]string{"version": config.Version})
}

type fetchRequest struct {
	URL      string `json:"url"`
	Site     string `json:"site,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Format   string `json:"format,omitempty"`
	UseProxy bool   `json:"use_proxy,omitempty"`
	MaxDepth int    `json:"max_depth,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
	// TimeoutSeconds overrides the server's per-request budget.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.URL == "" {
		s.fail(w, http.StatusBadRequest, "bad_request", "url is required")
		return
	}

	format := assemble.FormatLLM
	if req.Format == string(assemble.FormatMarkdown) {
		format = assemble.FormatMarkdown
	}
	result, err := s.harvester.Fetch(r.Context(), req.URL, harvest.FetchOptions{
		SiteHint: req.Site,
		Mode:     req.Mode,
		Format:   format,
		UseProxy: req.UseProxy,
		MaxDepth: req.MaxDepth,
		MaxPages: req.MaxPages,
		Timeout:  time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.ok(w, map[string]any{
		"title":      result.Title,
		"mode":       result.Mode,
		"source_url": result.SourceURL,
		"markdown":   result.Markdown,
	})
}

type captureRequest struct {
	URL        string  `json:"url"`
	Site       string  `json:"site,omitempty"`
	PDF        bool    `json:"pdf,omitempty"`
	PrintScale float64 `json:"print_scale,omitempty"`
	UseProxy   bool    `json:"use_proxy,omitempty"`
	// OutputDir retains artifacts on the server's filesystem; without it
	// the capture is converted to text and the files are discarded.
	OutputDir      string `json:"output_dir,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.URL == "" {
		s.fail(w, http.StatusBadRequest, "bad_request", "url is required")
		return
	}

	opts := harvest.CaptureOptions{
		SiteHint:   req.Site,
		WantPDF:    req.PDF,
		PrintScale: req.PrintScale,
		UseProxy:   req.UseProxy,
		OutputDir:  req.OutputDir,
		Timeout:    time.Duration(req.TimeoutSeconds) * time.Second,
	}

	if req.OutputDir == "" {
		text, art, err := s.harvester.CaptureText(r.Context(), req.URL, opts)
		if err != nil {
			s.failErr(w, err)
			return
		}
		s.ok(w, map[string]any{
			"source_url": art.SourceURL,
			"text":       text,
		})
		return
	}

	art, _, err := s.harvester.Capture(r.Context(), req.URL, opts)
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.ok(w, map[string]any{
		"source_url":      art.SourceURL,
		"screenshot_path": art.ScreenshotPath,
		"document_path":   art.DocumentPath,
	})
}

type searchRequest struct {
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Keyword == "" {
		s.fail(w, http.StatusBadRequest, "bad_request", "keyword is required")
		return
	}
	results, err := s.harvester.SearchWeb(r.Context(), req.Keyword, req.Limit)
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.ok(w, map[string]any{"results": results})
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		s.fail(w, http.StatusBadRequest, "bad_request", "q is required")
		return
	}
	siteHint := r.URL.Query().Get("site")
	titles, err := s.harvester.SearchTitles(r.Context(), siteHint, keyword, 10)
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.ok(w, map[string]any{"titles": titles})
}

func (s *Server) ok(w http.ResponseWriter, result any) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

// failErr maps pipeline errors onto the HTTP surface by error kind.
func (s *Server) failErr(w http.ResponseWriter, err error) {
	kind := types.ErrorKind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrUnsupportedTarget),
		errors.Is(err, types.ErrMissingCredentials),
		errors.Is(err, types.ErrMissingTitle):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrEmptyContent):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, types.ErrGatewayTimeout):
		status = http.StatusBadGateway
	}
	s.fail(w, status, kind, err.Error())
}

func (s *Server) fail(w http.ResponseWriter, status int, kind, message string) {
	s.logger.Warn("request failed", "status", status, "kind", kind, "message", message)
	s.jsonResponse(w, status, map[string]any{
		"status":  "error",
		"kind":    kind,
		"message": message,
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
