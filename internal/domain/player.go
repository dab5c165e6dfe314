// Package domain contains core domain types for the Find My Heart application.
package domain

import (
	"time"
)

// Player is a signed-in person with the profile shown in the game view.
type Player struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RevokedToken records a signed-out session token until it would have expired anyway.
type RevokedToken struct {
	TokenID   string
	PlayerID  string
	ExpiresAt time.Time
}
