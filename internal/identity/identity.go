// Package identity signs players in and out and resolves who is making a request.
package identity

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ashureev/find-my-heart/internal/domain"
	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/ashureev/find-my-heart/internal/store"
)

const (
	CookieName            = "fmh_session"
	SessionHeaderName     = "X-FMH-Session-ID"
	DefaultSessionIDValue = "default"
	maxDisplayNameLength  = 64
)

var (
	ErrInvalidDisplayName = errors.New("display name must be 1-64 characters")
	ErrInvalidAvatarURL   = errors.New("avatar url must be an absolute http(s) url")
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	claimsKey
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Display names are plain text; any markup is stripped before storing.
var namePolicy = bluemonday.StrictPolicy()

func cleanDisplayName(name string) string {
	return strings.TrimSpace(html.UnescapeString(namePolicy.Sanitize(name)))
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// ClaimsFromContext returns the validated token claims, or nil when unauthenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	if v, ok := ctx.Value(claimsKey).(*Claims); ok {
		return v
	}
	return nil
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authenticator is the authentication collaborator: it reports status, signs
// players in and signs them out.
type Authenticator struct {
	repo   store.Repository
	tokens *TokenManager
	isDev  bool
}

// NewAuthenticator creates an authenticator backed by repo.
func NewAuthenticator(repo store.Repository, tokens *TokenManager, isDev bool) *Authenticator {
	return &Authenticator{repo: repo, tokens: tokens, isDev: isDev}
}

// Resolve determines the authentication status of r. Every failure resolves
// to Unauthenticated; the caller cannot tell a failed sign-in from none.
func (a *Authenticator) Resolve(ctx context.Context, r *http.Request) (gate.Status, *Claims) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return gate.UnauthenticatedStatus(), nil
	}

	claims, err := a.tokens.Parse(raw)
	if err != nil {
		slog.Debug("Rejected session token", "error", err, "ip", IPFromRequest(r))
		return gate.UnauthenticatedStatus(), nil
	}

	if err := a.Check(ctx, claims); err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			slog.Debug("Rejected session token", "error", err, "player_id", claims.Subject)
		} else {
			slog.Error("Failed to check token revocation", "error", err, "player_id", claims.Subject)
		}
		return gate.UnauthenticatedStatus(), nil
	}

	player, err := a.repo.GetPlayer(ctx, claims.Subject)
	if err != nil {
		slog.Error("Failed to load player", "error", err, "player_id", claims.Subject)
		return gate.UnauthenticatedStatus(), nil
	}
	if player == nil {
		return gate.UnauthenticatedStatus(), nil
	}

	return gate.AuthenticatedAs(player), claims
}

// Check reports whether the session behind claims is still signed in.
// It returns ErrTokenRevoked once the session has been signed out.
func (a *Authenticator) Check(ctx context.Context, claims *Claims) error {
	revoked, err := a.repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// Middleware resolves the authentication status and per-tab session ID and
// stores both in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, claims := a.Resolve(r.Context(), r)
		if status.Kind != gate.Authenticated {
			if _, err := r.Cookie(CookieName); err == nil {
				a.clearCookie(w)
			}
		}

		ctx := gate.WithStatus(r.Context(), status)
		ctx = context.WithValue(ctx, sessionIDKey, sessionIDFromRequest(r))
		if claims != nil {
			ctx = context.WithValue(ctx, claimsKey, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SignIn creates a player with the given profile and sets the session cookie.
func (a *Authenticator) SignIn(ctx context.Context, w http.ResponseWriter, displayName, avatarURL string) (*domain.Player, error) {
	displayName = cleanDisplayName(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, ErrInvalidDisplayName
	}
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL != "" && !isHTTPURL(avatarURL) {
		return nil, ErrInvalidAvatarURL
	}

	now := time.Now()
	player := &domain.Player{
		PlayerID:    "player_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.repo.UpsertPlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}

	token, claims, err := a.tokens.Issue(player)
	if err != nil {
		return nil, err
	}
	a.setCookie(w, token, claims.ExpiresAt.Time)

	slog.Info("Player signed in", "player_id", player.PlayerID)
	return player, nil
}

// SignOut revokes the request's session token and clears the cookie.
// Signing out without a valid token only clears the cookie.
func (a *Authenticator) SignOut(ctx context.Context, w http.ResponseWriter, claims *Claims) error {
	a.clearCookie(w)
	return a.Revoke(ctx, claims)
}

// Revoke signs out the token described by claims without touching cookies.
// Channels that cannot set cookies, like the game socket, use it directly.
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return nil
	}

	if err := a.repo.RevokeToken(ctx, domain.RevokedToken{
		TokenID:   claims.ID,
		PlayerID:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	slog.Info("Player signed out", "player_id", claims.Subject)
	return nil
}

func (a *Authenticator) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.tokens.TTL().Seconds()),
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !a.isDev,
	})
}

func (a *Authenticator) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !a.isDev,
	})
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
