// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rankrocket/rankrocket-crawler/internal/config"
	"github.com/rankrocket/rankrocket-crawler/internal/metrics"
	"github.com/rankrocket/rankrocket-crawler/internal/schedule"
	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// Server wires HTTP handlers to the scheduler and stores.
type Server struct {
	router      chi.Router
	scheduler   *schedule.Scheduler
	submissions seo.SubmissionStore
	results     seo.ResultStore
	clock       seo.Clock
	cfg         config.Config
	logger      *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scheduler *schedule.Scheduler,
	submissions seo.SubmissionStore,
	results seo.ResultStore,
	clock seo.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scheduler:   scheduler,
		submissions: submissions,
		results:     results,
		clock:       clock,
		cfg:         cfg,
		logger:      logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/submit-url", s.submitURL)
			r.Get("/status/{submission_id}", s.submissionStatus)
		})
		r.Get("/reports/{submission_id}", s.report)
		r.Route("/schedule", func(r chi.Router) {
			r.Post("/", s.submitSchedule)
			r.Get("/", s.listSchedules)
			r.Post("/bulk", s.bulkSubmit)
			r.Get("/statistics", s.statistics)
			r.Post("/{schedule_id}/cancel", s.cancelSchedule)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The schedule store is the only hard dependency at startup.
	if _, err := s.scheduler.Statistics(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "schedule store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
