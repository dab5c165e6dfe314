package play

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/identity"
	"github.com/ashureev/find-my-heart/internal/store"
)

// Limiter decides whether a keyed action may proceed now.
type Limiter interface {
	Allow(key string) bool
}

// WebSocketHandler serves the game view over a WebSocket. The connection is
// the view's lifetime: a session is mounted when it opens and unmounted when
// it closes.
type WebSocketHandler struct {
	auth          *identity.Authenticator
	repo          store.Repository
	registry      *Registry
	limiter       Limiter
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(auth *identity.Authenticator, repo store.Repository, registry *Registry, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		auth:          auth,
		repo:          repo,
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// SetLimiter bounds answer submissions per player.
func (h *WebSocketHandler) SetLimiter(l Limiter) {
	h.limiter = l
}

// clientMessage is a message from the browser.
type clientMessage struct {
	Type    string  `json:"type"`
	Content string  `json:"content,omitempty"`
	Answer  *string `json:"answer,omitempty"`
}

// serverMessage is a message to the browser.
type serverMessage struct {
	Type   string      `json:"type"`
	Status string      `json:"status,omitempty"`
	Player *PlayerInfo `json:"player,omitempty"`
	Route  string      `json:"route,omitempty"`
	State  *View       `json:"state,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// PlayerInfo is the part of a player the views display.
type PlayerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// NewPlayerInfo returns the display fields of an authenticated status.
func NewPlayerInfo(st gate.Status) *PlayerInfo {
	if st.Kind != gate.Authenticated {
		return nil
	}
	return &PlayerInfo{ID: st.PlayerID(), DisplayName: st.DisplayName(), AvatarURL: st.AvatarURL()}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tabID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "tab_id", tabID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "tab_id", tabID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "view closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "tab_id", tabID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	watcher := gate.NewWatcher()
	if err := h.send(ctx, ws, serverMessage{Type: "status", Status: gate.Loading.String()}); err != nil {
		return
	}

	status, claims := h.auth.Resolve(ctx, r)
	watcher.Set(status)

	if decision := gate.Decide(status); decision.Action != gate.Render {
		if err := h.send(ctx, ws, serverMessage{Type: "navigate", Route: decision.Route}); err != nil {
			slog.Debug("Failed to send navigate", "error", err)
		}
		return
	}

	playerID := status.PlayerID()
	sess, err := h.registry.Open(playerID, tabID, watcher)
	if err != nil {
		slog.Error("Failed to open game session", "error", err, "player_id", playerID)
		if err := h.send(ctx, ws, serverMessage{Type: "error", Error: "session_unavailable"}); err != nil {
			slog.Debug("Failed to send session_unavailable error", "error", err)
		}
		return
	}
	defer h.registry.Close(playerID, tabID, sess)

	if err := h.send(ctx, ws, serverMessage{
		Type:   "status",
		Status: status.Kind.String(),
		Player: NewPlayerInfo(status),
	}); err != nil {
		return
	}

	updates := newLatestState()
	unsubscribe := sess.Subscribe(updates.offer)
	defer unsubscribe()
	updates.offer(sess.Snapshot())

	conn := &connection{
		handler:  h,
		ws:       ws,
		sess:     sess,
		watcher:  watcher,
		claims:   claims,
		playerID: playerID,
		tabID:    tabID,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: browser -> session.
	go func() {
		defer wg.Done()
		defer cancel()
		conn.inputLoop(ctx)
	}()

	// Output loop: session -> browser.
	go func() {
		defer wg.Done()
		defer cancel()
		conn.outputLoop(ctx, updates)
	}()

	wg.Wait()
	slog.Info("Game view closed", "player_id", playerID, "tab_id", tabID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) send(ctx context.Context, ws *websocket.Conn, msg serverMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, ws, msg)
}

// connection is one mounted game view.
type connection struct {
	handler  *WebSocketHandler
	ws       *websocket.Conn
	sess     *game.Session
	watcher  *gate.Watcher
	claims   *identity.Claims
	playerID string
	tabID    string
}

//nolint:gocognit // Message dispatch covers every player action.
func (c *connection) inputLoop(ctx context.Context) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "player_id", c.playerID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "player_id", c.playerID)
			}
			return
		}

		var err error
		switch msg.Type {
		case "input":
			_, err = c.sess.UpdatePendingInput(msg.Content)
		case "submit":
			if c.handler.limiter != nil && !c.handler.limiter.Allow(c.playerID) {
				err = c.handler.send(ctx, c.ws, serverMessage{Type: "error", Error: "rate_limited"})
				break
			}
			answer := c.sess.Snapshot().PendingInput
			if msg.Answer != nil {
				answer = *msg.Answer
			}
			_, err = c.sess.SubmitAnswer(answer)
		case "hint":
			_, err = c.sess.ToggleHint()
		case "dismiss":
			_, err = c.sess.DismissCelebration()
		case "reset":
			_, err = c.sess.Reset()
		case "signout":
			c.signOut(ctx)
		case "ping":
			err = c.handler.send(ctx, c.ws, serverMessage{Type: "pong"})
		default:
			err = c.handler.send(ctx, c.ws, serverMessage{Type: "error", Error: "unknown_message"})
		}
		if errors.Is(err, game.ErrSessionClosed) {
			// The output loop decides where the view goes next.
			<-ctx.Done()
			return
		}
		if err != nil {
			slog.Debug("Failed to handle game message", "error", err, "type", msg.Type, "player_id", c.playerID)
		}

		// Keystrokes and keepalives don't count as activity.
		if msg.Type != "input" && msg.Type != "ping" {
			c.touch()
		}
	}
}

// touch updates last seen asynchronously with timeout.
func (c *connection) touch() {
	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.handler.repo.UpdateLastSeen(updateCtx, c.playerID, time.Now()); err != nil {
			slog.Warn("Failed to update last seen", "error", err)
		}
	}()
}

func (c *connection) outputLoop(ctx context.Context, updates *latestState) {
	var sent uint64
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.sess.Done():
			c.leave(ctx)
			return
		case <-updates.ready:
			st := updates.take()
			if !first && st.Version <= sent {
				continue
			}
			view := NewView(st, c.sess.Catalog())
			if err := c.handler.send(ctx, c.ws, serverMessage{Type: "state", State: &view}); err != nil {
				if ctx.Err() == nil {
					slog.Debug("WebSocket write error", "error", err)
				}
				return
			}
			sent, first = st.Version, false
		}
	}
}

// leave runs once the session is torn down. A signed-out player, whichever
// tab signed out, is sent to the landing view. A tab whose session was taken
// over by a newer connection is told so. Otherwise (idle sweep, shutdown) the
// socket just closes and the view reconnects to a fresh game.
func (c *connection) leave(ctx context.Context) {
	if !c.signedIn(ctx) {
		c.watcher.Set(gate.UnauthenticatedStatus())
		if err := c.handler.send(ctx, c.ws, serverMessage{Type: "navigate", Route: gate.RouteLanding}); err != nil {
			slog.Debug("Failed to send navigate", "error", err)
		}
		return
	}
	if cur := c.handler.registry.Get(c.playerID, c.tabID); cur != nil && cur != c.sess {
		if err := c.handler.send(ctx, c.ws, serverMessage{Type: "error", Error: "session_replaced"}); err != nil {
			slog.Debug("Failed to send session_replaced", "error", err)
		}
		return
	}
	slog.Debug("Game session closed under open view", "player_id", c.playerID, "tab_id", c.tabID)
}

func (c *connection) signedIn(ctx context.Context) bool {
	if c.watcher.Status().Kind != gate.Authenticated || c.claims == nil {
		return false
	}
	if err := c.handler.auth.Check(ctx, c.claims); err != nil {
		if !errors.Is(err, identity.ErrTokenRevoked) {
			slog.Warn("Failed to recheck session", "error", err, "player_id", c.playerID)
		}
		return false
	}
	return true
}

func (c *connection) signOut(ctx context.Context) {
	if err := c.handler.auth.Revoke(ctx, c.claims); err != nil {
		slog.Error("Failed to revoke token", "error", err, "player_id", c.playerID)
	}
	c.watcher.Set(gate.UnauthenticatedStatus())
	c.handler.registry.CloseAll(c.playerID)
}

// latestState keeps only the newest snapshot so a slow socket never blocks
// the session that produces them.
type latestState struct {
	mu    sync.Mutex
	st    game.State
	has   bool
	ready chan struct{}
}

func newLatestState() *latestState {
	return &latestState{ready: make(chan struct{}, 1)}
}

func (l *latestState) offer(st game.State) {
	l.mu.Lock()
	if !l.has || st.Version >= l.st.Version {
		l.st = st
		l.has = true
	}
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latestState) take() game.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.has = false
	return l.st
}
