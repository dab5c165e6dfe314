package play

import (
	"github.com/ashureev/find-my-heart/internal/game"
	"github.com/ashureev/find-my-heart/internal/puzzle"
)

// HeartPiece is one piece of the heart visualization.
type HeartPiece struct {
	puzzle.Piece
	Filled bool `json:"filled"`
}

// View is what the game view renders for a snapshot. The expected answer
// never leaves the server.
type View struct {
	Version         uint64       `json:"version"`
	PuzzleNumber    int          `json:"puzzle_number"`
	PuzzleCount     int          `json:"puzzle_count"`
	Question        string       `json:"question"`
	Hint            string       `json:"hint,omitempty"`
	HintVisible     bool         `json:"hint_visible"`
	PendingInput    string       `json:"pending_input"`
	Feedback        string       `json:"feedback"`
	FeedbackMessage string       `json:"feedback_message,omitempty"`
	Pieces          []HeartPiece `json:"pieces"`
	CompletedCount  int          `json:"completed_count"`
	Complete        bool         `json:"complete"`
	Celebration     bool         `json:"celebration"`
	Transitioning   bool         `json:"transitioning"`
}

// NewView renders st against the puzzles of its session.
func NewView(st game.State, catalog puzzle.Catalog) View {
	current := catalog[st.CurrentIndex]
	layout := puzzle.HeartLayout()

	pieces := make([]HeartPiece, len(layout))
	for i, p := range layout {
		pieces[i] = HeartPiece{Piece: p, Filled: st.Completed[i]}
	}

	v := View{
		Version:         st.Version,
		PuzzleNumber:    st.CurrentIndex + 1,
		PuzzleCount:     len(catalog),
		Question:        current.Question,
		HintVisible:     st.HintVisible,
		PendingInput:    st.PendingInput,
		Feedback:        st.Feedback.String(),
		FeedbackMessage: st.Feedback.Message(),
		Pieces:          pieces,
		CompletedCount:  st.CompletedCount(),
		Complete:        st.AllComplete,
		Celebration:     st.CelebrationVisible(),
		Transitioning:   st.Transitioning,
	}
	if st.HintVisible {
		v.Hint = current.Hint
	}
	return v
}
