package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"MomentumRotator/internal/model"
	"MomentumRotator/internal/report"
)

// Service is the decision loop as seen by HTTP clients.
type Service interface {
	Latest() *model.DecisionOutput
	Park(ctx context.Context) (*model.SwitchRecord, error)
	ExecuteSwitch(ctx context.Context) (*model.SwitchRecord, error)
	Blacklist(ctx context.Context, asset string) ([]string, error)
	Unblacklist(ctx context.Context, asset string) ([]string, error)
	Report() (report.Summary, error)
}

// History reads stored equity and switches.
type History interface {
	LatestEquity(limit int) ([]model.EquityPoint, error)
	LatestSwitches(limit int) ([]model.SwitchRecord, error)
}

// Config holds server configuration
type Config struct {
	Addr    string
	Log     zerolog.Logger
	Service Service
	History History
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	service Service
	history History
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		service: cfg.Service,
		history: cfg.History,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/decision", s.handleDecision)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/report", s.handleReport)

		r.Route("/history", func(r chi.Router) {
			r.Get("/equity", s.handleEquityHistory)
			r.Get("/switches", s.handleSwitchHistory)
		})

		r.Route("/actions", func(r chi.Router) {
			r.Post("/park", s.handlePark)
			r.Post("/switch", s.handleSwitch)
		})

		r.Post("/blacklist/{asset}", s.handleBlacklist)
		r.Delete("/blacklist/{asset}", s.handleUnblacklist)
	})
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
