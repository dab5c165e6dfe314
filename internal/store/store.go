// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/find-my-heart/internal/domain"
)

// ErrPlayerNotFound is returned when an update targets a player that does not exist.
var ErrPlayerNotFound = errors.New("player not found")

// Repository defines the interface for persisting players and signed-out tokens.
// Game progress is never stored.
type Repository interface {
	// GetPlayer retrieves a player by ID. Returns nil, nil if the player does not exist.
	GetPlayer(ctx context.Context, playerID string) (*domain.Player, error)

	// UpsertPlayer creates or updates a player record.
	UpsertPlayer(ctx context.Context, player *domain.Player) error

	// UpdateLastSeen updates the last_seen_at timestamp for a player.
	UpdateLastSeen(ctx context.Context, playerID string, lastSeen time.Time) error

	// RevokeToken marks a session token as signed out until it expires.
	RevokeToken(ctx context.Context, token domain.RevokedToken) error

	// IsTokenRevoked reports whether a session token has been signed out.
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)

	// PurgeExpiredRevocations removes revocations for tokens that expired before now.
	PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
