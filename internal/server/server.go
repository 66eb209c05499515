// Package server is the composition root: it opens the stores, builds the
// services and handlers, and mounts them on a chi router.
//
//	config.Config → sqlite.DB, session.Store → services → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/secrets-board/internal/auth"
	"github.com/sakif/secrets-board/internal/config"
	"github.com/sakif/secrets-board/internal/handler"
	"github.com/sakif/secrets-board/internal/middleware"
	sqliteRepo "github.com/sakif/secrets-board/internal/repository/sqlite"
	"github.com/sakif/secrets-board/internal/service"
	"github.com/sakif/secrets-board/internal/session"
	"github.com/sakif/secrets-board/internal/web"
)

const shutdownTimeout = 30 * time.Second

// sessionStore is a session.Store the server owns and closes on shutdown.
type sessionStore interface {
	session.Store
	io.Closer
}

// Server holds the router and the resources it must release on shutdown.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions sessionStore
}

// New opens the database and session store and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.UsesDefaultSessionSecret() {
		logger.Warn("SESSION_SECRET is not set, session cookies are signed with the public default")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: store,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func newSessionStore(cfg config.Config) (sessionStore, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return session.NewMemoryStore(), nil
	}
}

// setupRoutes mounts middleware and handlers.
//
// Global middleware runs in this order on every request:
//  1. RequestID: tags the request for log correlation
//  2. RealIP: RemoteAddr from X-Forwarded-For or X-Real-IP, only when
//     TRUST_PROXY_HEADERS is set
//  3. Recoverer: a panicking handler becomes a 500
//  4. Logger: one line per request
//  5. Load: attaches the session identity, if any
//
// Routes:
//
//	GET  /                     home page
//	GET  /healthz              health check (pings the database)
//	GET  /login, /register     forms
//	POST /login, /register     local auth (rate limited per IP)
//	GET  /auth/google          Google consent redirect
//	GET  /auth/google/secrets  Google callback
//	GET  /secrets              board            (signed in)
//	GET  /submit, POST /submit submission       (signed in)
//	GET  /logout               end session
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	secure := strings.HasPrefix(s.config.GoogleCallbackURL, "https://")
	sessions := session.NewManager(s.sessions, tokens, s.config.SessionTTL, secure, s.logger)

	var (
		provider  *auth.GoogleProvider
		exchanger service.GoogleExchanger
	)
	if s.config.GoogleEnabled() {
		provider = auth.NewGoogleProvider(s.config.GoogleClientID, s.config.GoogleClientSecret, s.config.GoogleCallbackURL)
		if s.config.GoogleEndpointsOverridden() {
			s.logger.Warn("using overridden Google endpoints", slog.String("token_url", s.config.GoogleTokenURL))
			provider.WithEndpoints(s.config.GoogleAuthURL, s.config.GoogleTokenURL, s.config.GoogleUserInfoURL)
		}
		exchanger = provider
	} else {
		s.logger.Warn("CLIENT_ID or CLIENT_SECRET not set, Google sign-in is disabled")
	}

	renderer, err := handler.NewRenderer(web.Templates, s.logger)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(s.db, auth.NewPasswordService(), exchanger, s.logger)
	secretService := service.NewSecretService(s.db, s.logger)

	pageHandler := handler.NewPageHandler(renderer, provider != nil)
	authHandler := handler.NewAuthHandler(authService, sessions, provider, secure, s.logger)
	secretHandler := handler.NewSecretHandler(secretService, renderer, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	limiter := middleware.NewRateLimiter(s.config.LoginRateLimit)

	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxyHeaders {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(sessions.Load)

	s.router.Get("/", pageHandler.HandleHome)
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Get("/login", pageHandler.HandleLoginForm)
	s.router.Get("/register", pageHandler.HandleRegisterForm)

	s.router.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
	})

	s.router.Get("/auth/google", authHandler.HandleGoogleLogin)
	s.router.Get("/auth/google/secrets", authHandler.HandleGoogleCallback)
	s.router.Get("/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(session.RequireAuth("/login"))
		r.Get("/secrets", secretHandler.HandleList)
		r.Get("/submit", secretHandler.HandleSubmitForm)
		r.Post("/submit", secretHandler.HandleSubmit)
	})

	return nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the session store and the database.
func (s *Server) Close() error {
	return errors.Join(s.sessions.Close(), s.db.Close())
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the stores.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("sessions", s.config.SessionBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
