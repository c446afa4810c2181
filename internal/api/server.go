// Package api exposes the read-mostly HTTP surface: verified matches, the
// alert audit log, router status, the runtime feed toggle, Prometheus
// metrics, and a WebSocket event stream.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"matchpulse/internal/config"
)

// Server runs the HTTP/WebSocket API.
type Server struct {
	cfg      config.APIConfig
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer wires the router. metricsHandler serves /metrics; pass nil to
// omit the endpoint.
func NewServer(
	cfg config.APIConfig,
	matches MatchProvider,
	feeds FeedControl,
	alerts AlertStore,
	staleAge time.Duration,
	metricsHandler http.Handler,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(matches, feeds, alerts, hub, staleAge, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handlers.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/matches", handlers.HandleMatches)
		r.Get("/alerts", handlers.HandleAlerts)
		r.Get("/feeds/status", handlers.HandleFeedStatus)
		r.Post("/feeds/toggle", handlers.HandleFeedToggle)
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Get("/ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Hub returns the WebSocket hub so the engine can broadcast events.
func (s *Server) Hub() *Hub { return s.hub }

// Start starts the hub and blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	go s.hub.Run()

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
