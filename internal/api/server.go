// Package api serves the deck generation HTTP API and the progress
// WebSocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ramonehamilton/commander-craft/internal/api/handlers"
	"github.com/ramonehamilton/commander-craft/internal/api/websocket"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/events"
	"github.com/ramonehamilton/commander-craft/internal/metrics"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	listener   net.Listener
	cfg        Config
	logger     *slog.Logger

	// WebSocket hub for generation progress
	wsHub *websocket.Hub

	deckHandler      *handlers.DeckHandler
	commanderHandler *handlers.CommanderHandler
	systemHandler    *handlers.SystemHandler
}

// Config holds configuration for the API server.
type Config struct {
	Addr            string
	Debug           bool
	AllowedOrigins  []string
	RequestTimeout  time.Duration // applies to /api/v1 routes
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8080",
		AllowedOrigins:  []string{"http://localhost:*", "http://127.0.0.1:*"},
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Services are the backends the handlers call. Generator and Commanders are
// required; the rest are optional.
type Services struct {
	Generator  handlers.Generator
	Decks      handlers.DeckStore
	Commanders handlers.CommanderSource
	Status     handlers.StatusSource
	Cache      handlers.CacheStatsSource
	Metrics    *metrics.GenerationMetrics
	Dispatcher *events.EventDispatcher
	Popularity handlers.Popularity

	// Currency prices commander records returned by lookups.
	Currency string
	// LandConfig returns the current land tunables for plan previews.
	LandConfig func() commander.LandConfig
	// Provider names the configured generative provider.
	Provider func() string
}

// NewServer creates a new API server. When svc.Dispatcher is set, progress
// events are forwarded to WebSocket clients.
func NewServer(cfg *Config, svc Services) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wsHub := websocket.NewHub(logger, cfg.AllowedOrigins...)
	if svc.Dispatcher != nil {
		svc.Dispatcher.Register(websocket.NewWebSocketObserver(wsHub))
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    *cfg,
		logger: logger.With("component", "api"),
		wsHub:  wsHub,
		deckHandler: handlers.NewDeckHandler(svc.Generator, svc.Decks, handlers.DeckHandlerOptions{
			Debug:      cfg.Debug,
			Dispatcher: svc.Dispatcher,
			Popularity: svc.Popularity,
			Logger:     logger,
		}),
		commanderHandler: handlers.NewCommanderHandler(svc.Commanders, svc.Currency, svc.LandConfig),
		systemHandler: handlers.NewSystemHandler(handlers.SystemHandlerOptions{
			Metrics:  svc.Metrics,
			Store:    svc.Status,
			Cache:    svc.Cache,
			Provider: svc.Provider,
			Clients:  wsHub.ClientCount,
		}),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Content-Type enforcement for POST only
	s.router.Use(jsonContentTypeMiddleware)
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background. Bind errors
// are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	go func() {
		s.logger.Info("API server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Shutdown stops the WebSocket hub and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// ShutdownTimeout is the configured grace period for Shutdown.
func (s *Server) ShutdownTimeout() time.Duration {
	return s.cfg.ShutdownTimeout
}

// WebSocketHub returns the WebSocket hub.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
