package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/find-my-heart/internal/config"
	"github.com/ashureev/find-my-heart/internal/play"
	"github.com/ashureev/find-my-heart/internal/puzzle"
	"github.com/ashureev/find-my-heart/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// HealthHandler handles health check and client configuration endpoints.
type HealthHandler struct {
	repo     store.Repository
	registry *play.Registry
	cfg      *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, registry *play.Registry, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, registry: registry, cfg: cfg}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":   "healthy",
		"checks":   checks,
		"sessions": h.registry.Len(),
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// GetConfig returns the game configuration for the frontend.
func (h *HealthHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"puzzle_count":     puzzle.Count,
		"advance_delay_ms": h.cfg.Game.AdvanceDelay.Milliseconds(),
		"reveal_delay_ms":  h.cfg.Game.RevealDelay.Milliseconds(),
	})
}

// RegisterHealth registers the health check and config routes.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/api/config", h.GetConfig)
}
