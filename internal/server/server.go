package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/models"
	"github.com/mohaoran/AlphaCouncil/internal/storage"
)

// AnalysisRunner runs one analysis end to end. Satisfied by
// workflow.Engine.
type AnalysisRunner interface {
	Run(ctx context.Context, req models.AnalysisRequest) (*models.DecisionArtifact, error)
}

// Server exposes the analysis workflow over HTTP.
type Server struct {
	cfg        *config.Config
	runner     AnalysisRunner
	store      *storage.Store
	httpServer *http.Server
}

// NewServer wires the router. store may be nil, in which case history
// endpoints report the store as unavailable and runs are not persisted.
func NewServer(cfg *config.Config, runner AnalysisRunner, store *storage.Store) *Server {
	s := &Server{cfg: cfg, runner: runner, store: store}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analysis", s.handleAnalysis).Methods("POST")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")
	r.Use(loggingMiddleware)

	s.httpServer = &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Printf("[Server] listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[Server] shutting down")
	return s.httpServer.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[Server] %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
