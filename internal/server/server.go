// Package server provides the HTTP server for the Abhinaya movement analysis service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/server/api"
	"github.com/ayusman/abhinaya/internal/store"
)

// Config holds the server configuration. Routes are only mounted for the
// collaborators that are set.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server represents the HTTP server for the Abhinaya application.
type Server struct {
	config Config
	logger logrus.FieldLogger
	router chi.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		config: config,
		logger: logger,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		trackerHandler := api.NewTrackerHandler(a)
		r.Get("/api/tracker", trackerHandler.Get)
		r.Post("/api/tracker/select", trackerHandler.Select)
		r.Post("/api/tracker/reset", trackerHandler.Reset)

		analyzersHandler := api.NewAnalyzersHandler(a)
		r.Get("/api/analyzers", analyzersHandler.List)
		r.Put("/api/analyzers/{id}", analyzersHandler.Update)

		viewHandler := api.NewViewHandler(a)
		r.Get("/api/view", viewHandler.Get)
		r.Put("/api/view", viewHandler.Update)

		r.Method(http.MethodGet, "/api/results", NewResultsHandler(a, s.logger))
		r.Method(http.MethodGet, "/api/stream", NewStreamHandler(a, DefaultStreamInterval))
	}

	if st := s.config.Store; st != nil {
		sessionsHandler := api.NewSessionsHandler(st)
		r.Get("/api/sessions", sessionsHandler.List)
		r.Get("/api/sessions/{id}/events", sessionsHandler.Events)
		r.Delete("/api/sessions/{id}", sessionsHandler.Delete)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// requestLogger logs API requests at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(started),
		}).Debug("HTTP request")
	})
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["enabled"] = a.IsEnabled()
		response["session"] = a.Session().ID()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
