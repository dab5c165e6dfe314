package play

import (
	"encoding/json"
	"testing"

	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/puzzle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewOfInitialState(t *testing.T) {
	catalog := puzzle.Default()
	v := NewView(game.Initial(), catalog)

	assert.Equal(t, 1, v.PuzzleNumber)
	assert.Equal(t, puzzle.Count, v.PuzzleCount)
	assert.Equal(t, catalog[0].Question, v.Question)
	assert.Empty(t, v.Hint, "hint stays hidden until toggled")
	assert.Equal(t, "none", v.Feedback)
	assert.Empty(t, v.FeedbackMessage)
	require.Len(t, v.Pieces, puzzle.Count)
	for _, p := range v.Pieces {
		assert.False(t, p.Filled)
	}
	assert.False(t, v.Celebration)
}

func TestViewRevealsHintAndProgress(t *testing.T) {
	catalog := puzzle.Default()
	st, _ := game.Submit(game.Initial(), catalog, catalog[0].Answer)
	st = game.Advance(st).ToggleHint()

	v := NewView(st, catalog)
	assert.Equal(t, 2, v.PuzzleNumber)
	assert.Equal(t, catalog[1].Hint, v.Hint)
	assert.True(t, v.Pieces[0].Filled)
	assert.False(t, v.Pieces[1].Filled)
	assert.Equal(t, 1, v.CompletedCount)
}

func TestViewNeverCarriesAnswers(t *testing.T) {
	catalog := puzzle.Default()
	raw, err := json.Marshal(NewView(game.Initial().ToggleHint(), catalog))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"answer"`)
}
