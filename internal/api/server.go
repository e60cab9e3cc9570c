// Package api exposes the HTTP interface for the tender scraping service.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alialtamimi/etimad-scraper/internal/metrics"
	"github.com/alialtamimi/etimad-scraper/internal/pipeline"
	"github.com/alialtamimi/etimad-scraper/internal/store"
)

const (
	defaultTenderLimit = 100
	defaultLogLimit    = 50
	maxListLimit       = 500
)

// PipelineRunner triggers background scrape runs and reports their state.
type PipelineRunner interface {
	Start(ctx context.Context) (uuid.UUID, error)
	Status() (pipeline.State, *pipeline.Report)
}

// Reader serves the dashboard's read models.
type Reader interface {
	RecentTenders(ctx context.Context, limit int) ([]store.Tender, error)
	RecentScrapingLogs(ctx context.Context, limit int) ([]store.ScrapingLog, error)
}

// Pinger checks downstream readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the pipeline and the store.
type Server struct {
	router chi.Router
	runner PipelineRunner
	reader Reader
	pinger Pinger
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner PipelineRunner, reader Reader, pinger Pinger, logger *zap.Logger) *Server {
	s := &Server{
		runner: runner,
		reader: reader,
		pinger: pinger,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/pipeline", func(r chi.Router) {
			r.Post("/run", s.triggerRun)
			r.Get("/status", s.pipelineStatus)
		})
		r.Get("/tenders", s.listTenders)
		r.Get("/scraping-logs", s.listScrapingLogs)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	id, err := s.runner.Start(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id.String()})
}

func (s *Server) pipelineStatus(w http.ResponseWriter, _ *http.Request) {
	state, last := s.runner.Status()
	resp := map[string]any{"state": string(state)}
	if last != nil {
		resp["last_run"] = last
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listTenders(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultTenderLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenders, err := s.reader.RecentTenders(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list tenders", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch tenders")
		return
	}
	if tenders == nil {
		tenders = []store.Tender{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tenders": tenders})
}

func (s *Server) listScrapingLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultLogLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := s.reader.RecentScrapingLogs(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list scraping logs", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to fetch scraping logs")
		return
	}
	if logs == nil {
		logs = []store.ScrapingLog{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}
