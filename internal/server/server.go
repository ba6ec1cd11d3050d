// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB → NoteService / AuthService → NoteHandler / AuthHandler / NoteAPIHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes) rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/handler"
	"github.com/sakif/notes/internal/middleware"
	sqliteRepo "github.com/sakif/notes/internal/repository/sqlite"
	"github.com/sakif/notes/internal/service"
	"github.com/sakif/notes/internal/view"
	"github.com/sakif/notes/web"
)

// limiterIdle is how long an idle client IP keeps its login bucket.
const limiterIdle = 10 * time.Minute

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the login rate limiter's
// cleanup goroutine. Close releases both; Start calls it on the way out.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
}

// Option tweaks how New builds the server.
type Option func(*options)

type options struct {
	passwords *auth.PasswordService
}

// WithPasswordService replaces the default bcrypt cost. Tests use a low cost
// so signups stay fast.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(o *options) { o.passwords = p }
}

// New creates a Server from a validated config.
//
// WIRING:
//  1. Open the database (sqlite.New)
//  2. Parse the embedded templates (view.NewRenderer)
//  3. Build the services on top of the repository interfaces
//  4. Build the handlers on top of the services
//  5. Wire handlers to routes
//
// cfg.Session.Secret must be set; see config.EnsureSecret.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{passwords: auth.NewPasswordService()}
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	renderer, err := view.NewRenderer(web.Templates())
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.LoginRate.PerSecond, cfg.LoginRate.Burst, limiterIdle),
	}

	s.setupRoutes(tokens, o.passwords, renderer)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET        /                       → home page (public)
//	GET        /static/*               → CSS
//	GET, POST  /auth/login/            → login form (POST is rate limited)
//	GET, POST  /auth/logout/           → clear the session cookie
//	GET, POST  /auth/signup/           → create a local account
//	GET        /auth/github/login      → only when GitHub is configured
//	GET        /auth/github/callback   → only when GitHub is configured
//	GET        /notes/                 → the user's notes        ┐
//	GET, POST  /add/                   → create a note           │
//	GET        /done/                  → success page            │ login
//	GET        /note/{slug}/           → note detail             │ required
//	GET, POST  /edit/{slug}/           → edit a note             │
//	GET, POST  /delete/{slug}/         → delete a note           ┘
//	*          /api/notes[/{slug}]     → JSON API, 401 when anonymous
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger and the rate limiter see
// them. OptionalAuth runs before Logger so the log line carries the user ID.
//
// RealIP rewrites RemoteAddr from client-supplied headers, so it is only
// installed when trust_proxy is set. Without it the login limiter keys on
// the TCP peer address.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService, renderer *view.Renderer) {
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.OptionalAuth(tokens))
	s.router.Use(middleware.Logger(s.logger))

	// === Static Files ===
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// DEPENDENCY CHAIN:
	//   s.db implements repository.NoteRepository and repository.UserRepository
	//   services receive the repository interfaces
	//   handlers receive the services
	noteService := service.NewNoteService(s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	// A nil *GitHubProvider stored in the interface would not compare equal
	// to nil, so the interface stays unset when GitHub is off.
	var github handler.OAuthProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}

	notes := handler.NewNoteHandler(noteService, authService, renderer, s.logger)
	accounts := handler.NewAuthHandler(authService, tokens, github, renderer, s.logger)
	api := handler.NewNoteAPIHandler(noteService, s.logger)

	s.router.NotFound(notes.NotFound)

	// === Public Pages ===
	s.router.Get(handler.HomePath, notes.Home)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login/", accounts.LoginForm)
		r.With(s.limiter.Limit(middleware.ClientIP)).Post("/login/", accounts.Login)
		r.Get("/logout/", accounts.Logout)
		r.Post("/logout/", accounts.Logout)
		r.Get("/signup/", accounts.SignupForm)
		r.Post("/signup/", accounts.Signup)

		if accounts.GitHubEnabled() {
			r.Get("/github/login", accounts.GitHubLogin)
			r.Get("/github/callback", accounts.GitHubCallback)
		}
	})

	// === Note Pages (login required) ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin(handler.LoginPath))

		r.Get("/notes/", notes.List)
		r.Get("/add/", notes.AddForm)
		r.Post("/add/", notes.Add)
		r.Get(handler.SuccessPath, notes.Success)
		r.Get("/note/{slug}/", notes.Detail)
		r.Get("/edit/{slug}/", notes.EditForm)
		r.Post("/edit/{slug}/", notes.Edit)
		r.Get("/delete/{slug}/", notes.DeleteConfirm)
		r.Post("/delete/{slug}/", notes.Delete)
	})

	// === JSON API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/notes", api.List)
		r.Post("/notes", api.Create)
		r.Get("/notes/{slug}", api.Get)
		r.Put("/notes/{slug}", api.Update)
		r.Delete("/notes/{slug}", api.Delete)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the rate limiter and closes the database.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing server resources", slog.String("error", err.Error()))
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
			slog.Bool("github", s.config.GitHubEnabled()),
			slog.Bool("trustProxy", s.config.TrustProxy),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
