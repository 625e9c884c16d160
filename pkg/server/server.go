// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darkrai19/ai-powered-analyst/pkg/chart"
	"github.com/darkrai19/ai-powered-analyst/pkg/pipeline"
	"github.com/darkrai19/ai-powered-analyst/pkg/warehouse"
)

// Answerer is the subset of the pipeline the server needs.
type Answerer interface {
	Answer(ctx context.Context, question string) *pipeline.Result
}

// Config holds the server configuration.
type Config struct {
	Logger         *slog.Logger
	Pipeline       Answerer
	Addr           string
	AllowedOrigins []string
	AskTimeout     time.Duration
}

// Server handles HTTP requests for the analyst.
type Server struct {
	log     *slog.Logger
	cfg     Config
	httpSrv *http.Server
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the JSON answer for one question.
type AskResponse struct {
	Question  string          `json:"question"`
	Reasoning string          `json:"reasoning,omitempty"`
	SQL       string          `json:"sql,omitempty"`
	Columns   []string        `json:"columns,omitempty"`
	Rows      []warehouse.Row `json:"rows,omitempty"`
	RowCount  int             `json:"row_count"`
	Narrative string          `json:"narrative"`
	Figure    *chart.Figure   `json:"figure,omitempty"`
}

// New creates a new Server.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.AskTimeout == 0 {
		cfg.AskTimeout = 2 * time.Minute
	}

	s := &Server{
		log: cfg.Logger,
		cfg: cfg,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/ask", s.handleAsk)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.AskTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	return s, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("server: http server error", "error", err)
			serveErrCh <- err
		}
	}()
	s.log.Info("server: listening", "address", s.cfg.Addr)

	select {
	case err := <-serveErrCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write healthz response", "error", err)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	questionsTotal.Inc()
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AskTimeout)
	defer cancel()

	result := s.cfg.Pipeline.Answer(ctx, req.Question)
	questionDuration.Observe(time.Since(start).Seconds())

	resp := AskResponse{
		Question:  result.Question,
		Reasoning: result.Plan.Reasoning,
		SQL:       result.Plan.SQLQuery,
		Narrative: result.Narrative,
		Figure:    result.Figure,
	}
	if result.Table != nil {
		resp.Columns = result.Table.Columns
		resp.Rows = result.Table.Rows
		resp.RowCount = result.Table.Count
	} else {
		questionFailures.Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("failed to encode ask response", "error", err)
	}
}
