// Package server exposes the explorer over HTTP with a small JSON API.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	counterfactual "github.com/maia-posternack/anadol-counterfactual"
	"github.com/maia-posternack/anadol-counterfactual/internal/errortypes"
	"github.com/maia-posternack/anadol-counterfactual/internal/latent"
)

const defaultNeighborCount = 5

// Server serves the explorer query interface over HTTP.
type Server struct {
	explorer *counterfactual.Explorer
	logger   *slog.Logger
	router   chi.Router
}

// New creates a Server around an explorer.
func New(explorer *counterfactual.Explorer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{explorer: explorer, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/healthz", s.handleHealth)
	r.Get("/api/meta", s.handleMeta)
	r.Get("/api/random", s.handleRandom)
	r.Get("/api/artwork/{idx}", s.handleArtwork)
	r.Post("/api/navigate", s.handleNavigate)
	r.Post("/api/generate", s.handleGenerate)
	r.Post("/api/stats", s.handlePathStats)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": s.explorer.Count(),
	})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.explorer.Meta())
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	id := s.explorer.RandomID()
	details, err := s.explorer.Details(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleArtwork(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		s.writeError(w, errortypes.InvalidArgumentError(err, "Artwork index must be an integer"))
		return
	}
	details, err := s.explorer.Details(latent.ID(idx))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

type navigateRequest struct {
	CurrentIdx int    `json:"current_idx"`
	Dimension  string `json:"dimension"`
	K          int    `json:"k"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Dimension == "" {
		req.Dimension = string(latent.FacetSimilar)
	}
	if req.K <= 0 {
		req.K = defaultNeighborCount
	}

	neighbors, err := s.explorer.Navigate(latent.ID(req.CurrentIdx), req.Dimension, req.K)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"neighbors": neighbors,
		"dimension": req.Dimension,
	})
}

type generateRequest struct {
	Idx  int    `json:"idx"`
	Mode string `json:"mode"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Mode == "" {
		req.Mode = "ai-preferred"
	}

	artifact, err := s.explorer.Generate(r.Context(), latent.ID(req.Idx), req.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, artifact)
}

type pathStatsRequest struct {
	Path []int `json:"path"`
}

func (s *Server) handlePathStats(w http.ResponseWriter, r *http.Request) {
	var req pathStatsRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	path := make([]latent.ID, len(req.Path))
	for i, idx := range req.Path {
		path[i] = latent.ID(idx)
	}

	stats, err := s.explorer.PathStatistics(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) readJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errortypes.InvalidArgumentError(err, "Failed to decode request body")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: caller mistakes are
// 400, upstream synthesis failures are 502, everything else is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errType := "internal"

	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		errType = string(appErr.Type)
		switch {
		case errortypes.IsOutOfRange(err), errortypes.IsInvalidArgument(err):
			status = http.StatusBadRequest
		case errortypes.IsExternal(err):
			status = http.StatusBadGateway
		}
	}

	if status >= 500 {
		s.logger.Error("Request failed", "type", errType, "error", err)
	}
	s.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"type":  errType,
	})
}
