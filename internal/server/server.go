// Package server exposes the sampling engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ministryofjustice/probation-case-sampler/internal/cases"
	"github.com/ministryofjustice/probation-case-sampler/internal/config"
	"github.com/ministryofjustice/probation-case-sampler/internal/report"
	"github.com/ministryofjustice/probation-case-sampler/internal/sampler"
)

// Saver persists a finished report.
type Saver interface {
	Save(ctx context.Context, r *sampler.Report) error
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Status           int    `json:"status"`
	DeveloperMessage string `json:"developerMessage"`
}

// Server handles sampling requests with one engine and fixed settings.
type Server struct {
	settings config.Sample
	engine   *sampler.Engine
	store    Saver
	metrics  *Metrics
	logger   *zap.Logger
}

// New builds a server. store may be nil, in which case reports are not kept.
func New(settings config.Sample, engine *sampler.Engine, store Saver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		settings: settings,
		engine:   engine,
		store:    store,
		metrics:  NewMetrics(),
		logger:   logger,
	}
}

// Metrics returns the collectors updated by the handlers.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	r.Post("/sample", s.handleSample(false))
	r.Post("/analyse", s.handleSample(true))
	return r
}

func (s *Server) handleSample(detail bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := strconv.Atoi(r.URL.Query().Get("size"))
		if err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("size must be an integer: %w", err))
			return
		}
		records, err := cases.DecodeJSON(r.Body)
		if err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
		if err := cases.Validate(records); err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}

		rep, err := s.engine.Allocate(sampler.Request{
			Records:          records,
			Size:             size,
			BufferPercentage: s.settings.BufferPercentage,
			MaxPerAgent:      s.settings.MaxPerAgent,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sampler.ErrInvalidConfiguration) {
				status = http.StatusBadRequest
			}
			s.fail(w, status, err)
			return
		}

		if s.store != nil {
			if err := s.store.Save(r.Context(), rep); err != nil {
				s.fail(w, http.StatusInternalServerError, fmt.Errorf("save report %s: %w", rep.ID, err))
				return
			}
		}

		s.metrics.runs.WithLabelValues(outcomeOK).Inc()
		s.metrics.selected.Observe(float64(rep.Selected()))
		if rep.Shortfall() > 0 {
			s.metrics.underAllocate.Inc()
		}
		writeJSON(w, http.StatusOK, report.View(rep, detail))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	outcome := outcomeError
	if status < http.StatusInternalServerError {
		outcome = outcomeInvalid
		s.logger.Info("rejected sampling request", zap.Error(err))
	} else {
		s.logger.Error("sampling request failed", zap.Error(err))
	}
	s.metrics.runs.WithLabelValues(outcome).Inc()
	writeJSON(w, status, ErrorResponse{Status: status, DeveloperMessage: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
