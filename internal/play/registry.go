// Package play hosts live game sessions and the view channel that renders them.
package play

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/puzzle"
)

// Registry tracks the mounted game session of every player tab.
// Each player/tab pair has at most one session.
type Registry struct {
	catalog puzzle.Catalog
	opts    game.Options

	mu     sync.RWMutex
	active map[string]map[string]*game.Session // playerID -> tab session ID -> session
}

// NewRegistry creates a registry whose sessions play catalog with opts.
func NewRegistry(catalog puzzle.Catalog, opts game.Options) *Registry {
	return &Registry{
		catalog: catalog,
		opts:    opts,
		active:  make(map[string]map[string]*game.Session),
	}
}

// Catalog returns the puzzles every session of the registry plays.
func (r *Registry) Catalog() puzzle.Catalog {
	return r.catalog
}

// Open mounts a fresh game for the player's tab. Any session already mounted
// for the same tab is closed and replaced.
func (r *Registry) Open(playerID, tabID string, auth *gate.Watcher) (*game.Session, error) {
	s, err := game.NewSession(uuid.NewString(), r.catalog, auth, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.active[playerID]; !exists {
		r.active[playerID] = make(map[string]*game.Session)
	}
	existing := r.active[playerID][tabID]
	r.active[playerID][tabID] = s
	r.mu.Unlock()

	if existing != nil {
		existing.Close()
	}

	// Drop the entry once the session tears itself down, e.g. on sign-out.
	go func() {
		<-s.Done()
		r.forget(playerID, tabID, s)
	}()

	slog.Info("Game session opened", "player_id", playerID, "tab_id", tabID, "session_id", s.ID())
	return s, nil
}

// Get returns the mounted session for a player's tab, or nil.
func (r *Registry) Get(playerID, tabID string) *game.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sessions, ok := r.active[playerID]; ok {
		return sessions[tabID]
	}
	return nil
}

// GetOrOpen returns the mounted session for the tab, opening one if needed.
func (r *Registry) GetOrOpen(playerID, tabID string, auth *gate.Watcher) (*game.Session, error) {
	if s := r.Get(playerID, tabID); s != nil && !s.Closed() {
		return s, nil
	}
	return r.Open(playerID, tabID, auth)
}

// Close unmounts the session of a player's tab if it is s, or any session when s is nil.
func (r *Registry) Close(playerID, tabID string, s *game.Session) {
	r.mu.Lock()
	current := r.active[playerID][tabID]
	if current == nil || (s != nil && current != s) {
		r.mu.Unlock()
		return
	}
	r.removeLocked(playerID, tabID)
	r.mu.Unlock()

	current.Close()
	slog.Info("Game session closed", "player_id", playerID, "tab_id", tabID, "session_id", current.ID())
}

// CloseAll unmounts every session of a player.
func (r *Registry) CloseAll(playerID string) int {
	r.mu.Lock()
	sessions := r.active[playerID]
	delete(r.active, playerID)
	r.mu.Unlock()

	for tab, s := range sessions {
		s.Close()
		slog.Info("Game session closed", "player_id", playerID, "tab_id", tab, "session_id", s.ID())
	}
	return len(sessions)
}

// CloseIdle unmounts sessions with no player action since before cutoff.
func (r *Registry) CloseIdle(cutoff time.Time) int {
	type entry struct {
		playerID, tabID string
		s               *game.Session
	}

	r.mu.RLock()
	var idle []entry
	for playerID, sessions := range r.active {
		for tabID, s := range sessions {
			if s.LastActive().Before(cutoff) {
				idle = append(idle, entry{playerID, tabID, s})
			}
		}
	}
	r.mu.RUnlock()

	for _, e := range idle {
		r.Close(e.playerID, e.tabID, e.s)
	}
	return len(idle)
}

// Len returns the number of mounted sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, sessions := range r.active {
		n += len(sessions)
	}
	return n
}

// Shutdown closes every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	active := r.active
	r.active = make(map[string]map[string]*game.Session)
	r.mu.Unlock()

	for _, sessions := range active {
		for _, s := range sessions {
			s.Close()
		}
	}
}

func (r *Registry) forget(playerID, tabID string, s *game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[playerID][tabID] == s {
		r.removeLocked(playerID, tabID)
	}
}

func (r *Registry) removeLocked(playerID, tabID string) {
	sessions, ok := r.active[playerID]
	if !ok {
		return
	}
	delete(sessions, tabID)
	if len(sessions) == 0 {
		delete(r.active, playerID)
	}
}
