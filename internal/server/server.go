// Package server wires configuration, storage, services and handlers into
// an HTTP server.
//
//	config.Config → sqlite.DB → services → handlers → chi routes
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

	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/config"
	"github.com/sakif/listmate/internal/handler"
	"github.com/sakif/listmate/internal/middleware"
	sqliteRepo "github.com/sakif/listmate/internal/repository/sqlite"
	"github.com/sakif/listmate/internal/service"
)

type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	pipeline *pipeline
}

// New opens the database, starts the notification pipeline and builds the
// routes. Close releases both; Start does that on shutdown.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	p, err := startPipeline(cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("starting notifications: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		pipeline: p,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes
//
//	GET    /healthz
//	GET    /auth/providers             (optional auth)
//	GET    /auth/{provider}/login
//	GET    /auth/{provider}/callback
//	POST   /auth/register
//	POST   /auth/login
//	POST   /auth/logout
//	GET    /api/me                     (auth)
//	PATCH  /api/me                     (auth)
//	DELETE /api/me                     (auth)
//	PUT    /api/me/password            (auth)
//	GET    /api/users/{id}             (auth)
//	GET    /api/users/{id}/display     (auth)
//	GET    /api/friends                (auth)
//	GET    /api/friends/inverse        (auth)
//	POST   /api/friends                (auth)
//	GET    /api/friends/{id}           (auth)
//	DELETE /api/friends/{id}           (auth)
//	GET    /api/lists                  (auth)
//	POST   /api/lists                  (auth)
//	GET    /api/lists/{id}             (auth)
//	PATCH  /api/lists/{id}             (auth)
//	DELETE /api/lists/{id}             (auth)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	providers, err := oauthProviders(s.config)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	users := s.db.Users()
	userService := service.NewUserService(users, passwords, s.pipeline.notifier, s.logger)
	authService := service.NewAuthService(users, userService, tokens, passwords, s.logger)
	friendService := service.NewFriendService(users, s.db.Friendships(), s.logger)
	listService := service.NewListService(s.db.Lists(), s.logger)

	secure := s.config.IsProduction()
	authHandler := handler.NewAuthHandler(authService, providers, handler.CookieConfig{TTL: tokens.TTL(), Secure: secure}, s.logger)
	userHandler := handler.NewUserHandler(userService, secure, s.logger)
	friendHandler := handler.NewFriendHandler(friendService, s.logger)
	listHandler := handler.NewListHandler(listService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.With(auth.OptionalAuth(authService)).Get("/providers", authHandler.HandleProviders)
		r.Get("/{provider}/login", authHandler.HandleOAuthLogin)
		r.Get("/{provider}/callback", authHandler.HandleOAuthCallback)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(authService))

		r.Get("/me", userHandler.HandleMe)
		r.Patch("/me", userHandler.HandleUpdateMe)
		r.Delete("/me", userHandler.HandleDeleteMe)
		r.Put("/me/password", userHandler.HandleChangePassword)
		r.Get("/users/{id}", userHandler.HandleGetUser)
		r.Get("/users/{id}/display", userHandler.HandleDisplay)

		r.Get("/friends", friendHandler.HandleList)
		r.Get("/friends/inverse", friendHandler.HandleListInverse)
		r.Post("/friends", friendHandler.HandleAdd)
		r.Get("/friends/{id}", friendHandler.HandleCheck)
		r.Delete("/friends/{id}", friendHandler.HandleRemove)

		r.Get("/lists", listHandler.HandleList)
		r.Post("/lists", listHandler.HandleCreate)
		r.Get("/lists/{id}", listHandler.HandleGet)
		r.Patch("/lists/{id}", listHandler.HandleRename)
		r.Delete("/lists/{id}", listHandler.HandleDelete)
	})

	return nil
}

func oauthProviders(cfg config.Config) (auth.Providers, error) {
	providers := auth.Providers{}
	for name, client := range cfg.OAuthClients() {
		p, err := auth.NewProvider(name, client.ClientID, client.ClientSecret, cfg.CallbackURL(name))
		if err != nil {
			return nil, err
		}
		providers[name] = p
	}
	return providers, nil
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled. In-flight requests get 30 seconds to
// finish; the notification pipeline and database are closed after that.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

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
			slog.String("url", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
			slog.String("notify", s.config.NotifyBackend),
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

// Close stops the notification pipeline and closes the database.
func (s *Server) Close() error {
	return errors.Join(s.pipeline.close(), s.db.Close())
}
