package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/play"
	"github.com/ashureev/find-my-heart/web"
)

// pageData is what the page templates render.
type pageData struct {
	Title       string
	Description string
	Loading     bool
	Player      *play.PlayerInfo
	Error       string
	View        play.View
}

// PageHandler serves the landing and game views.
type PageHandler struct {
	*Handler
}

// NewPageHandler creates a new page handler.
func NewPageHandler(base *Handler) *PageHandler {
	return &PageHandler{Handler: base}
}

// RegisterRoutes registers the page routes. The game view only renders for
// signed-in players.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get(gate.RouteLanding, h.Landing)
	r.With(gate.RequireAuth(gate.RouteLanding)).Get(gate.RouteGame, h.Game)
}

func (h *PageHandler) data(status gate.Status) pageData {
	return pageData{
		Title:       siteTitle,
		Description: siteDescription,
		Loading:     status.Kind == gate.Loading,
		Player:      play.NewPlayerInfo(status),
	}
}

// Landing renders the landing view: a sign-in form, or a way into the game.
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.renderLanding(w, http.StatusOK, gate.StatusFromContext(r.Context()), "")
}

func (h *PageHandler) renderLanding(w http.ResponseWriter, status int, st gate.Status, errMsg string) {
	data := h.data(st)
	data.Error = errMsg
	h.pages.Render(w, status, web.PageLanding, data)
}

// Game renders the game view shell. The view mounts its session when its
// socket connects, so every visit starts from the first puzzle.
func (h *PageHandler) Game(w http.ResponseWriter, r *http.Request) {
	data := h.data(gate.StatusFromContext(r.Context()))
	data.View = play.NewView(game.Initial(), h.registry.Catalog())
	h.pages.Render(w, http.StatusOK, web.PageGame, data)
}
