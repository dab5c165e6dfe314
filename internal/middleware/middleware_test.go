package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashureev/find-my-heart/internal/domain"
	"github.com/ashureev/find-my-heart/internal/gate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestCORSExplicitOrigin(t *testing.T) {
	h := CORS([]string{"https://heart.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/game", nil)
	req.Header.Set("Origin", "https://heart.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://heart.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-FMH-Session-ID")
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	h := CORS([]string{"*"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/game", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "preflight is answered directly")
	assert.Equal(t, "https://elsewhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	h := CORS([]string{"https://heart.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/game", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterAllowsBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	clock := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("p-1"))
	assert.True(t, rl.Allow("p-1"))
	assert.False(t, rl.Allow("p-1"))
	assert.True(t, rl.Allow("p-2"), "keys are limited independently")

	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("p-1"), "tokens refill over time")
}

func TestRateLimiterMiddlewareKeysByPlayer(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Middleware(okHandler)

	withPlayer := func(id string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/game/answer", nil)
		status := gate.AuthenticatedAs(&domain.Player{PlayerID: id, DisplayName: id})
		return req.WithContext(gate.WithStatus(req.Context(), status))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withPlayer("p-1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withPlayer("p-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Same IP, different player.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withPlayer("p-2"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Anonymous requests fall back to the remote address.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/game/answer", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 3, rl.Len())
}

func TestRateLimiterPrune(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(5, 5)
	start := time.Now()
	rl.now = func() time.Time { return start }
	rl.Allow("old")
	rl.now = func() time.Time { return start.Add(10 * time.Minute) }
	rl.Allow("new")

	assert.Equal(t, 1, rl.Prune(start.Add(5*time.Minute)))
	assert.Equal(t, 1, rl.Len())

	rl.now = func() time.Time { return start.Add(time.Hour) }
	ctx, cancel := context.WithCancel(context.Background())
	rl.StartCleanup(ctx, time.Millisecond, time.Minute)
	require.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 2*time.Millisecond)
	cancel()
}
