// Find My Heart - puzzle game server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/find-my-heart/internal/api"
	"github.com/ashureev/find-my-heart/internal/config"
	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/identity"
	"github.com/ashureev/find-my-heart/internal/middleware"
	"github.com/ashureev/find-my-heart/internal/play"
	"github.com/ashureev/find-my-heart/internal/puzzle"
	"github.com/ashureev/find-my-heart/internal/store"
	"github.com/ashureev/find-my-heart/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	tokens, err := identity.NewTokenManager(cfg.AuthSecret, cfg.TokenTTL)
	if err != nil {
		slog.Error("Failed to initialize token manager", "error", err)
		os.Exit(1)
	}
	auth := identity.NewAuthenticator(repo, tokens, cfg.IsDevelopment())

	pages, err := web.LoadPages()
	if err != nil {
		slog.Error("Failed to load page templates", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	registry := play.NewRegistry(puzzle.Default(), game.Options{
		AdvanceDelay: cfg.Game.AdvanceDelay,
		RevealDelay:  cfg.Game.RevealDelay,
		Logger:       logger,
	})
	defer registry.Shutdown()

	submitLimiter := middleware.NewRateLimiter(cfg.RateLimit.SubmitPerSecond, cfg.RateLimit.SubmitBurst)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, auth, registry, pages)
	healthHandler := api.NewHealthHandler(repo, registry, cfg)
	pageHandler := api.NewPageHandler(baseHandler)
	authHandler := api.NewAuthHandler(baseHandler)
	gameHandler := api.NewGameHandler(baseHandler, submitLimiter.Middleware)
	wsHandler := play.NewWebSocketHandler(auth, repo, registry, cfg.FrontendURL, cfg.IsDevelopment())
	wsHandler.SetLimiter(submitLimiter)

	allowedOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(auth.Middleware)

	// Public routes.
	healthHandler.RegisterHealth(r)
	authHandler.RegisterRoutes(r)

	// Views. The game view and its API sit behind the auth gate.
	pageHandler.RegisterRoutes(r)
	gameHandler.RegisterRoutes(r)

	// WebSocket endpoint. It runs the gate itself so the view can show loading first.
	r.Get("/ws/game", wsHandler.ServeHTTP)

	// Embedded static assets.
	r.Handle("/static/*", web.StaticHandler())

	// Create server.
	// No WriteTimeout: game sockets stay open for the life of the view.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background workers.
	play.StartSweeper(ctx, repo, registry, cfg.SessionIdleTTL, cfg.SweepInterval)
	submitLimiter.StartCleanup(ctx, cfg.SweepInterval, 10*time.Minute)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing every game first lets open sockets end their loops.
	registry.Shutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
