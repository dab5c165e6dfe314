// Package gate decides whether a protected view is reachable for the current
// authentication status.
package gate

import (
	"context"
	"sync"

	"github.com/ashureev/find-my-heart/internal/domain"
)

// Kind is the resolution state of authentication.
type Kind int

const (
	Loading Kind = iota
	Authenticated
	Unauthenticated
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Status is the authentication state reported by the identity collaborator.
// Player is set only when Kind is Authenticated.
type Status struct {
	Kind   Kind
	Player *domain.Player
}

// LoadingStatus returns the unresolved status.
func LoadingStatus() Status {
	return Status{Kind: Loading}
}

// AuthenticatedAs returns a resolved status for player.
// A nil player resolves to Unauthenticated.
func AuthenticatedAs(player *domain.Player) Status {
	if player == nil {
		return Status{Kind: Unauthenticated}
	}
	return Status{Kind: Authenticated, Player: player}
}

// UnauthenticatedStatus returns the resolved signed-out status.
func UnauthenticatedStatus() Status {
	return Status{Kind: Unauthenticated}
}

// DisplayName returns the player's display name, or "" when not authenticated.
func (s Status) DisplayName() string {
	if s.Kind != Authenticated || s.Player == nil {
		return ""
	}
	return s.Player.DisplayName
}

// AvatarURL returns the player's avatar, or "" when absent.
func (s Status) AvatarURL() string {
	if s.Kind != Authenticated || s.Player == nil {
		return ""
	}
	return s.Player.AvatarURL
}

// PlayerID returns the authenticated player's ID, or "".
func (s Status) PlayerID() string {
	if s.Kind != Authenticated || s.Player == nil {
		return ""
	}
	return s.Player.PlayerID
}

type contextKey int

const statusKey contextKey = iota

// WithStatus attaches a resolved status to ctx.
func WithStatus(ctx context.Context, s Status) context.Context {
	return context.WithValue(ctx, statusKey, s)
}

// StatusFromContext returns the status stored in ctx, or Loading if none was resolved.
func StatusFromContext(ctx context.Context) Status {
	if s, ok := ctx.Value(statusKey).(Status); ok {
		return s
	}
	return LoadingStatus()
}

// Watcher holds a status and notifies subscribers when it changes.
// The zero value is not usable; use NewWatcher.
type Watcher struct {
	mu        sync.Mutex
	status    Status
	listeners map[int]func(Status)
	nextID    int
}

// NewWatcher returns a watcher starting in the Loading state.
func NewWatcher() *Watcher {
	return &Watcher{
		status:    LoadingStatus(),
		listeners: make(map[int]func(Status)),
	}
}

// Status returns the current status.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Set replaces the status and notifies subscribers. Listeners run without
// the watcher lock held, so they may call back into the watcher.
func (w *Watcher) Set(s Status) {
	w.mu.Lock()
	w.status = s
	listeners := make([]func(Status), 0, len(w.listeners))
	for _, fn := range w.listeners {
		listeners = append(listeners, fn)
	}
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Subscribe registers fn for status changes and returns a function that removes it.
func (w *Watcher) Subscribe(fn func(Status)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}
