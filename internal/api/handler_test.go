//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/play"
	"github.com/ashureev/find-my-heart/internal/puzzle"
)

func TestJSONWritesGameView(t *testing.T) {
	w := httptest.NewRecorder()
	st := game.Initial().ToggleHint()
	JSON(w, http.StatusOK, map[string]any{"session_id": "s-1", "state": play.NewView(st, puzzle.Default())})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var got struct {
		SessionID string    `json:"session_id"`
		State     play.View `json:"state"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.SessionID != "s-1" {
		t.Errorf("Expected session_id s-1, got %q", got.SessionID)
	}
	if got.State.PuzzleNumber != 1 || !got.State.HintVisible {
		t.Errorf("Unexpected view: %+v", got.State)
	}
	if got.State.Hint != puzzle.Default()[0].Hint {
		t.Errorf("Expected first hint, got %q", got.State.Hint)
	}
	if len(got.State.Pieces) != puzzle.Count {
		t.Errorf("Expected %d heart pieces, got %d", puzzle.Count, len(got.State.Pieces))
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "session_closed")

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
}
