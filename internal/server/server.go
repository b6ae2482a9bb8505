// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/database"
	ordershandlers "github.com/arlen/stockpilot/internal/modules/orders/handlers"
	portfoliohandlers "github.com/arlen/stockpilot/internal/modules/portfolio/handlers"
	stockshandlers "github.com/arlen/stockpilot/internal/modules/stocks/handlers"
	usershandlers "github.com/arlen/stockpilot/internal/modules/users/handlers"
	watchlisthandlers "github.com/arlen/stockpilot/internal/modules/watchlist/handlers"
)

// Config holds server configuration.
type Config struct {
	Log           zerolog.Logger
	DB            *database.DB
	Port          int
	DevMode       bool
	Authenticator api.Authenticator

	StocksHandler    *stockshandlers.Handler
	OrdersHandler    *ordershandlers.Handler
	PortfolioHandler *portfoliohandlers.Handler
	WatchlistHandler *watchlisthandlers.Handler
	UsersHandler     *usershandlers.Handler
	SystemHandlers   *SystemHandlers
}

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	db     *database.DB
	cfg    Config
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		db:     cfg.DB,
		cfg:    cfg,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(api.RequireAuth(s.cfg.Authenticator, s.log))

		s.cfg.StocksHandler.RegisterRoutes(r, s.log)
		s.cfg.OrdersHandler.RegisterRoutes(r)
		s.cfg.PortfolioHandler.RegisterRoutes(r)
		s.cfg.WatchlistHandler.RegisterRoutes(r)
		s.cfg.UsersHandler.RegisterRoutes(r)

		r.With(api.RequireAdmin(s.log)).Get("/system/status", s.cfg.SystemHandlers.HandleStatus)
	})
}

// handleHealth reports liveness plus a database integrity probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		api.WriteJSON(w, s.log, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	api.WriteJSON(w, s.log, http.StatusOK, map[string]string{"status": "ok"})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Start starts the HTTP server. Blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
