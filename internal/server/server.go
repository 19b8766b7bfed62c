// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the wiring layer: it connects handlers, middleware, and
// routes, and owns the resources that live as long as the process (the
// database, the metrics registry, the session sweeper).
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New creates:
//	  sqlite.DB → SessionStore → Policy + Resolver → Gate
//	  Gate + DB → services → handlers → routes
//
// All dependencies are wired in one place (New/setupRoutes), rather than
// scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/config"
	"github.com/sakif/utility-lineups/internal/handler"
	"github.com/sakif/utility-lineups/internal/middleware"
	sqliteRepo "github.com/sakif/utility-lineups/internal/repository/sqlite"
	"github.com/sakif/utility-lineups/internal/service"
	"github.com/sakif/utility-lineups/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection. Start closes it after the HTTP
// server has drained.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
	sessions *auth.SessionStore
}

// Options replaces pieces New would otherwise build from config. Tests use it
// to swap in fakes; nil fields keep the defaults.
type Options struct {
	Mailer    service.Mailer
	Passwords *auth.PasswordService
	GitHub    handler.GitHubAuth
}

// New opens the database, runs migrations and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := s.setupRoutes(ctx, opts); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown; tests that never
// call Start call it directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz, /metrics
//	GET    /auth/github/login, /auth/github/callback
//	       /api/auth/*                    public auth endpoints
//	       everything else under /api     behind RequireSession
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, so every log line carries it
//  2. RealIP, so sessions record the client address
//  3. Logger and Metrics
//  4. Recoverer, innermost, so a panic still gets logged as a 500
func (s *Server) setupRoutes(ctx context.Context, opts Options) error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.NewMetrics(s.registry).Handler)
	s.router.Use(chimiddleware.Recoverer)

	// === Auth core ===
	s.sessions = auth.NewSessionStore(s.db.Sessions(), s.logger)
	policy := authz.NewPolicy(s.db.Users(), s.db.Utilities(), s.db.ThrowingPoints())
	gate := authz.NewGate(s.sessions, policy, authz.NewResolver(s.db.Ownership()), authz.NewMetrics(s.registry), s.logger)

	tokens, err := auth.NewVerificationTokens(cfg.VerificationSecret)
	if err != nil {
		return fmt.Errorf("creating verification tokens: %w", err)
	}
	passwords := opts.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = service.NewLogMailer(s.logger)
	}

	// An interface holding a nil pointer is not nil, so optional
	// dependencies stay untyped nil unless configured.
	var github handler.GitHubAuth
	switch {
	case opts.GitHub != nil:
		github = opts.GitHub
	case cfg.GitHub.Enabled():
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	default:
		s.logger.Warn("GitHub OAuth not configured; /auth/github routes disabled")
	}

	var presigner service.UploadPresigner
	if cfg.S3.Enabled() {
		p, err := storage.NewPresigner(ctx, storage.Config{
			Region:        cfg.S3.Region,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Endpoint:      cfg.S3.Endpoint,
			Bucket:        cfg.S3.Bucket,
			PublicBaseURL: cfg.S3.PublicBaseURL,
			Expiry:        cfg.S3.UploadExpiry,
		})
		if err != nil {
			return fmt.Errorf("creating upload presigner: %w", err)
		}
		presigner = p
	} else {
		s.logger.Warn("S3 not configured; media upload URLs disabled")
	}

	// === Services ===
	accounts := service.NewAccountService(s.db.Users(), s.sessions, passwords, tokens, mailer, cfg.BaseURL, s.logger)
	utilities := service.NewUtilityService(s.db, gate, s.logger)
	points := service.NewThrowingPointService(s.db, gate, s.logger)
	media := service.NewMediaService(s.db, gate, presigner, s.logger)
	share := service.NewShareService(s.db, gate, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(accounts, s.sessions, policy, github, cfg.Production, s.logger)
	mapHandler := handler.NewMapHandler(s.db.Maps(), s.logger)
	utilityHandler := handler.NewUtilityHandler(utilities, s.logger)
	pointHandler := handler.NewThrowingPointHandler(points, s.logger)
	mediaHandler := handler.NewMediaHandler(media, s.logger)
	shareHandler := handler.NewShareHandler(share, s.logger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignUp)
			r.Post("/signin", authHandler.HandleSignIn)
			r.Post("/signout", authHandler.HandleSignOut)
			r.Get("/session", authHandler.HandleSession)
			r.Get("/verify-email", authHandler.HandleVerifyEmail)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.With(auth.RequireSession(gate, s.logger)).Post("/resend-verification", authHandler.HandleResendVerification)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(gate, s.logger))

			r.Get("/user/limits", authHandler.HandleLimits)

			r.Get("/maps", mapHandler.HandleList)
			r.Get("/maps/{mapID}/utilities", utilityHandler.HandleListByMap)

			r.Post("/utilities", utilityHandler.HandleCreate)
			r.Get("/utilities/{id}", utilityHandler.HandleGet)
			r.Put("/utilities/{id}", utilityHandler.HandleUpdate)
			r.Delete("/utilities/{id}", utilityHandler.HandleDelete)
			r.Get("/utilities/{id}/throwing-points", pointHandler.HandleListByUtility)
			r.Post("/utilities/{id}/throwing-points", pointHandler.HandleCreate)
			r.Get("/utilities/{id}/media", mediaHandler.HandleListByUtility)

			r.Get("/throwing-points/{id}", pointHandler.HandleGet)
			r.Put("/throwing-points/{id}", pointHandler.HandleUpdate)
			r.Delete("/throwing-points/{id}", pointHandler.HandleDelete)
			r.Get("/throwing-points/{id}/media", mediaHandler.HandleListByThrowingPoint)

			r.Post("/media", mediaHandler.HandleCreate)
			r.Post("/media/upload-url", mediaHandler.HandleUploadURL)
			r.Get("/media/{id}", mediaHandler.HandleGet)
			r.Put("/media/{id}", mediaHandler.HandleUpdate)
			r.Delete("/media/{id}", mediaHandler.HandleDelete)
			r.Post("/media/{id}/attach", mediaHandler.HandleAttach)
			r.Post("/media/{id}/detach", mediaHandler.HandleDetach)

			r.Post("/share/export", shareHandler.HandleExport)
			r.Post("/share/import", shareHandler.HandleImport)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable\n"))
		return
	}
	_, _ = w.Write([]byte("ok\n"))
}

// sweepSessions deletes expired sessions every interval until ctx ends.
// Validation already rejects expired rows; sweeping only reclaims space.
func (s *Server) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.Sweep(ctx)
			if err != nil {
				s.logger.Error("session sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Info("expired sessions removed", slog.Int64("count", n))
			}
		}
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM or ctx is cancelled, then
// shuts down gracefully:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (30s timeout)
//  3. Stop the session sweeper and close the database
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.config.SessionSweepInterval > 0 {
		go s.sweepSessions(ctx, s.config.SessionSweepInterval)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("production", s.config.Production),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
