package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/identity"
	"github.com/ashureev/find-my-heart/internal/play"
)

// GameHandler exposes the game of a player's tab over plain HTTP for clients
// without a socket. The session stays mounted until DELETE or the idle sweep.
type GameHandler struct {
	*Handler
	submitLimit func(http.Handler) http.Handler
}

// NewGameHandler creates a new game handler. submitLimit, when non-nil,
// wraps the answer endpoint.
func NewGameHandler(base *Handler, submitLimit func(http.Handler) http.Handler) *GameHandler {
	return &GameHandler{Handler: base, submitLimit: submitLimit}
}

// RegisterRoutes registers game routes behind the auth gate.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/game", func(r chi.Router) {
		r.Use(gate.RequireAuth(gate.RouteLanding))
		r.Get("/", h.Get)
		r.Delete("/", h.Unmount)
		r.Put("/input", h.UpdateInput)
		r.Post("/hint", h.ToggleHint)
		r.Post("/dismiss", h.Dismiss)
		r.Post("/reset", h.Reset)

		answer := http.Handler(http.HandlerFunc(h.SubmitAnswer))
		if h.submitLimit != nil {
			answer = h.submitLimit(answer)
		}
		r.Method(http.MethodPost, "/answer", answer)
	})
}

type answerRequest struct {
	Answer *string `json:"answer"`
}

type inputRequest struct {
	Content string `json:"content"`
}

// session returns the mounted session of the request's tab, mounting one if needed.
func (h *GameHandler) session(r *http.Request) (*game.Session, error) {
	status := gate.StatusFromContext(r.Context())
	watcher := gate.NewWatcher()
	watcher.Set(status)
	return h.registry.GetOrOpen(status.PlayerID(), identity.SessionIDFromContext(r.Context()), watcher)
}

// act runs op on the tab's session and writes the resulting view.
func (h *GameHandler) act(w http.ResponseWriter, r *http.Request, op func(*game.Session) (game.State, error)) {
	s, err := h.session(r)
	if err != nil {
		if errors.Is(err, game.ErrNotAuthenticated) {
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		slog.Error("Failed to open game session", "error", err)
		Error(w, http.StatusInternalServerError, "session_unavailable")
		return
	}

	st, err := op(s)
	if errors.Is(err, game.ErrSessionClosed) {
		Error(w, http.StatusConflict, "session_closed")
		return
	}
	if err != nil {
		slog.Error("Game action failed", "error", err, "session_id", s.ID())
		Error(w, http.StatusInternalServerError, "game action failed")
		return
	}

	h.writeState(w, s, st)
}

func (h *GameHandler) writeState(w http.ResponseWriter, s *game.Session, st game.State) {
	view := play.NewView(st, s.Catalog())
	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": s.ID(),
		"state":      view,
	})
}

// Get returns the current view of the tab's game.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(s *game.Session) (game.State, error) {
		return s.Snapshot(), nil
	})
}

// SubmitAnswer checks an answer. Without an answer in the body the pending
// input is submitted.
func (h *GameHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.act(w, r, func(s *game.Session) (game.State, error) {
		candidate := s.Snapshot().PendingInput
		if req.Answer != nil {
			candidate = *req.Answer
		}
		return s.SubmitAnswer(candidate)
	})
}

// UpdateInput replaces the pending answer text.
func (h *GameHandler) UpdateInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.act(w, r, func(s *game.Session) (game.State, error) {
		return s.UpdatePendingInput(req.Content)
	})
}

// ToggleHint shows or hides the hint of the current puzzle.
func (h *GameHandler) ToggleHint(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).ToggleHint)
}

// Dismiss closes the congratulations overlay.
func (h *GameHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).DismissCelebration)
}

// Reset starts the game over from the first puzzle.
func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).Reset)
}

// Unmount closes the tab's game.
func (h *GameHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	status := gate.StatusFromContext(r.Context())
	h.registry.Close(status.PlayerID(), identity.SessionIDFromContext(r.Context()), nil)
	w.WriteHeader(http.StatusNoContent)
}
