package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/find-my-heart/internal/domain"
	"github.com/ashureev/find-my-heart/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	players map[string]*domain.Player
	revoked map[string]domain.RevokedToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		players: make(map[string]*domain.Player),
		revoked: make(map[string]domain.RevokedToken),
	}
}

func (f *fakeRepo) GetPlayer(_ context.Context, id string) (*domain.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.players[id]
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpsertPlayer(_ context.Context, p *domain.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.players[p.PlayerID] = &cp
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeRepo) RevokeToken(_ context.Context, tok domain.RevokedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tok.TokenID] = tok
	return nil
}

func (f *fakeRepo) IsTokenRevoked(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[id]
	return ok, nil
}

func (f *fakeRepo) PurgeExpiredRevocations(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestAuthenticator(t *testing.T) (*Authenticator, *fakeRepo, *TokenManager) {
	t.Helper()
	tokens, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	repo := newFakeRepo()
	return NewAuthenticator(repo, tokens, true), repo, tokens
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	raw, claims, err := tokens.Issue(&domain.Player{PlayerID: "p-1", DisplayName: "Juliet"})
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "p-1", parsed.Subject)
	assert.Equal(t, "Juliet", parsed.Name)
	assert.Equal(t, claims.ID, parsed.ID)
}

func TestTokenRejections(t *testing.T) {
	_, err := NewTokenManager([]byte("short"), time.Hour)
	require.ErrorIs(t, err, ErrSecretTooShort)

	tokens, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	raw, _, err := tokens.Issue(&domain.Player{PlayerID: "p-1", DisplayName: "Juliet"})
	require.NoError(t, err)

	other, err := NewTokenManager([]byte("fedcba9876543210fedcba9876543210"), time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(raw)
	require.Error(t, err, "wrong secret")

	expired, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(&domain.Player{PlayerID: "p-1", DisplayName: "Juliet"})
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	require.Error(t, err, "expired token")

	_, err = tokens.Parse("not-a-token")
	require.Error(t, err)
}

func TestSignInValidation(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	ctx := context.Background()

	_, err := a.SignIn(ctx, httptest.NewRecorder(), "   ", "")
	require.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = a.SignIn(ctx, httptest.NewRecorder(), strings.Repeat("x", 65), "")
	require.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = a.SignIn(ctx, httptest.NewRecorder(), "Juliet", "javascript:alert(1)")
	require.ErrorIs(t, err, ErrInvalidAvatarURL)
}

func TestMiddlewareResolvesStatus(t *testing.T) {
	a, repo, _ := newTestAuthenticator(t)

	rec := httptest.NewRecorder()
	player, err := a.SignIn(context.Background(), rec, "  Juliet ", "https://example.com/j.png")
	require.NoError(t, err)
	assert.Equal(t, "Juliet", player.DisplayName)
	stored, _ := repo.GetPlayer(context.Background(), player.PlayerID)
	require.NotNil(t, stored)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge, "cookie lives as long as the token")

	var got gate.Status
	var sid string
	var claims *Claims
	h := a.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = gate.StatusFromContext(r.Context())
		sid = SessionIDFromContext(r.Context())
		claims = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/game", nil)
	req.AddCookie(cookie)
	req.Header.Set(SessionHeaderName, "tab-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, gate.Authenticated, got.Kind)
	assert.Equal(t, "Juliet", got.DisplayName())
	assert.Equal(t, "https://example.com/j.png", got.AvatarURL())
	assert.Equal(t, "tab-7", sid)
	require.NotNil(t, claims)

	// No token at all.
	req = httptest.NewRequest(http.MethodGet, "/game?session_id=bad%20id", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, gate.Unauthenticated, got.Kind)
	assert.Equal(t, DefaultSessionIDValue, sid)
	assert.Nil(t, claims)

	// Sign out revokes the token for good.
	out := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	status, c := a.Resolve(req.Context(), req)
	require.Equal(t, gate.Authenticated, status.Kind)
	require.NoError(t, a.SignOut(context.Background(), out, c))
	assert.Equal(t, -1, sessionCookie(t, out).MaxAge)

	req = httptest.NewRequest(http.MethodGet, "/game", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, gate.Unauthenticated, got.Kind)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge, "stale cookie is cleared")
}

func TestBearerTokenAndDeletedPlayer(t *testing.T) {
	a, repo, tokens := newTestAuthenticator(t)

	raw, _, err := tokens.Issue(&domain.Player{PlayerID: "p-gone", DisplayName: "Ghost"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/game", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	status, _ := a.Resolve(req.Context(), req)
	assert.Equal(t, gate.Unauthenticated, status.Kind, "token for a player that no longer exists")

	require.NoError(t, repo.UpsertPlayer(context.Background(), &domain.Player{PlayerID: "p-gone", DisplayName: "Back"}))
	status, _ = a.Resolve(req.Context(), req)
	assert.Equal(t, gate.Authenticated, status.Kind)
	assert.Equal(t, "Back", status.DisplayName())
}

func TestSignOutWithoutToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	rec := httptest.NewRecorder()
	require.NoError(t, a.SignOut(context.Background(), rec, nil))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestSignInStripsMarkupFromDisplayName(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	ctx := context.Background()

	player, err := a.SignIn(ctx, httptest.NewRecorder(), "<b>Romeo</b> & Juliet", "")
	require.NoError(t, err)
	assert.Equal(t, "Romeo & Juliet", player.DisplayName)

	_, err = a.SignIn(ctx, httptest.NewRecorder(), "<script>alert(1)</script>", "")
	require.ErrorIs(t, err, ErrInvalidDisplayName, "nothing left once markup is removed")
}

func TestCheckReportsRevokedSession(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	_, err := a.SignIn(ctx, rec, "Juliet", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	_, claims := a.Resolve(ctx, req)
	require.NotNil(t, claims)
	require.NoError(t, a.Check(ctx, claims))

	require.NoError(t, a.Revoke(ctx, claims))
	require.ErrorIs(t, a.Check(ctx, claims), ErrTokenRevoked)

	status, _ := a.Resolve(ctx, req)
	assert.Equal(t, gate.Unauthenticated, status.Kind)
}
