package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/identity"
	"github.com/ashureev/find-my-heart/internal/play"
)

// AuthHandler handles sign-in, sign-out and the current player.
type AuthHandler struct {
	*Handler
	pages *PageHandler
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base, pages: NewPageHandler(base)}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/signout", h.SignOut)
	r.Get("/api/me", h.GetMe)
}

type signInRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// SignIn creates a player and starts a session. Form posts land on the game
// view; JSON clients get the player back.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	asJSON := wantsJSON(r)

	var req signInRequest
	if asJSON {
		if err := decodeJSON(w, r, &req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			h.pages.renderLanding(w, http.StatusBadRequest, gate.UnauthenticatedStatus(), "Could not read the sign-in form.")
			return
		}
		req.DisplayName = r.PostForm.Get("display_name")
		req.AvatarURL = r.PostForm.Get("avatar_url")
	}

	player, err := h.auth.SignIn(r.Context(), w, req.DisplayName, req.AvatarURL)
	if err != nil {
		status, msg := http.StatusInternalServerError, "sign in failed"
		if errors.Is(err, identity.ErrInvalidDisplayName) || errors.Is(err, identity.ErrInvalidAvatarURL) {
			status, msg = http.StatusBadRequest, err.Error()
		} else {
			slog.Error("Failed to sign in", "error", err, "ip", identity.IPFromRequest(r))
		}
		if asJSON {
			Error(w, status, msg)
			return
		}
		h.pages.renderLanding(w, status, gate.UnauthenticatedStatus(), msg)
		return
	}

	if asJSON {
		JSON(w, http.StatusOK, map[string]interface{}{
			"status": gate.Authenticated.String(),
			"player": play.NewPlayerInfo(gate.AuthenticatedAs(player)),
		})
		return
	}
	http.Redirect(w, r, gate.RouteGame, http.StatusSeeOther)
}

// SignOut revokes the session token and unmounts every game of the player.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playerID := gate.StatusFromContext(ctx).PlayerID()

	if err := h.auth.SignOut(ctx, w, identity.ClaimsFromContext(ctx)); err != nil {
		slog.Error("Failed to sign out", "error", err, "player_id", playerID)
		Error(w, http.StatusInternalServerError, "sign out failed")
		return
	}
	if playerID != "" {
		closed := h.registry.CloseAll(playerID)
		slog.Info("Closed game sessions on sign out", "player_id", playerID, "count", closed)
	}

	if wantsJSON(r) {
		JSON(w, http.StatusOK, map[string]string{"status": gate.Unauthenticated.String()})
		return
	}
	http.Redirect(w, r, gate.RouteLanding, http.StatusSeeOther)
}

// GetMe returns the authentication status and, when signed in, the player.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	status := gate.StatusFromContext(r.Context())
	body := map[string]interface{}{"status": status.Kind.String()}
	if info := play.NewPlayerInfo(status); info != nil {
		body["player"] = info
	}
	JSON(w, http.StatusOK, body)
}
