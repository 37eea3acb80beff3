// Package api exposes the scoring engine over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Server is the Harrier HTTP API.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer wires the routes over the given collaborators.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps, cfg.MaxUploadBytes)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)

	// Probes and read-only views
	router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/health", handler.Health)
		r.Get("/ready", handler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/capabilities", handler.GetCapabilities)
		r.Get("/patterns", handler.Patterns)
	})

	// Scoring
	router.Group(func(r chi.Router) {
		r.Use(AnalysisTimeout(cfg.AnalysisTimeout))
		r.Use(middleware.Compress(5, "application/json"))
		r.Post("/analyze", handler.Analyze)
		r.Post("/analyze/qa", handler.AnalyzeQA)
		r.Post("/qa/ask", handler.Ask)
		r.Post("/documents", handler.UploadDocument)
	})

	router.Post("/extraction/grade", handler.GradeExtraction)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
