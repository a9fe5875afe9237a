package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/keepsake/internal/analysis"
	"github.com/MikeSquared-Agency/keepsake/internal/chat"
	"github.com/MikeSquared-Agency/keepsake/internal/store"
)

// Analyzer runs the full analysis pipeline over parsed messages.
type Analyzer interface {
	Run(ctx context.Context, msgs []chat.Message) (*analysis.Report, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	pipeline Analyzer
	store    *store.Store // nil when persistence is not configured
	logger   *slog.Logger
}

func NewServer(port int, pipeline Analyzer, st *store.Store, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		pipeline: pipeline,
		store:    st,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.analyze)
		r.Post("/preprocess", s.preprocess)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
