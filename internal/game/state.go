// Package game drives a player through the fixed puzzle sequence.
//
// State is an immutable snapshot: every transition returns a new value and
// leaves its receiver untouched. Session wraps a State with the delayed
// transitions and the subscribers that re-render on every change.
package game

import (
	"github.com/ashureev/find-my-heart/internal/puzzle"
)

// Feedback is the message shown after a submission.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackCorrect
	FeedbackRetry
)

// String returns the wire name of the feedback.
func (f Feedback) String() string {
	switch f {
	case FeedbackCorrect:
		return "correct"
	case FeedbackRetry:
		return "retry"
	default:
		return "none"
	}
}

// Message returns the text displayed to the player, or "" for FeedbackNone.
func (f Feedback) Message() string {
	switch f {
	case FeedbackCorrect:
		return "Correct! You found a piece of the heart! ❤️"
	case FeedbackRetry:
		return "Try again! Maybe use the hint? 💭"
	default:
		return ""
	}
}

// MarshalText encodes the feedback as its wire name.
func (f Feedback) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Outcome tells the caller which delayed transition a submission requires.
type Outcome int

const (
	// OutcomeNone means nothing is scheduled (wrong answer or ignored submission).
	OutcomeNone Outcome = iota
	// OutcomeAdvance schedules Advance after the advance delay.
	OutcomeAdvance
	// OutcomeFinish schedules Finish after the reveal delay.
	OutcomeFinish
)

// State is a snapshot of one game session.
type State struct {
	Completed            [puzzle.Count]bool `json:"completed"`
	CurrentIndex         int                `json:"current_index"`
	PendingInput         string             `json:"pending_input"`
	HintVisible          bool               `json:"hint_visible"`
	Feedback             Feedback           `json:"feedback"`
	AllComplete          bool               `json:"all_complete"`
	CelebrationDismissed bool               `json:"celebration_dismissed"`
	// Transitioning is set between a correct answer and its delayed transition.
	Transitioning bool   `json:"transitioning"`
	Version       uint64 `json:"version"`
}

// Initial returns the state of a freshly mounted game.
func Initial() State {
	return State{}
}

// Phase is the state machine position: Active(i) or Complete.
type Phase struct {
	Complete bool
	Index    int
}

// Phase returns the state machine position of s.
func (s State) Phase() Phase {
	if s.AllComplete {
		return Phase{Complete: true, Index: s.CurrentIndex}
	}
	return Phase{Index: s.CurrentIndex}
}

// CompletedCount returns how many heart pieces have been found.
func (s State) CompletedCount() int {
	n := 0
	for _, done := range s.Completed {
		if done {
			n++
		}
	}
	return n
}

// CelebrationVisible reports whether the congratulations overlay is shown.
func (s State) CelebrationVisible() bool {
	return s.AllComplete && !s.CelebrationDismissed
}

func (s State) next() State {
	s.Version++
	return s
}

// WithInput replaces the in-progress answer verbatim.
func (s State) WithInput(text string) State {
	s.PendingInput = text
	return s.next()
}

// ToggleHint flips hint visibility. Nothing else changes.
func (s State) ToggleHint() State {
	s.HintVisible = !s.HintVisible
	return s.next()
}

// Submit checks candidate against the active puzzle.
//
// A correct answer marks the puzzle completed, clears the input and hint and
// returns the delayed transition the caller must schedule. A wrong answer only
// sets Retry feedback. Submissions are ignored once the game is complete or
// while a previous correct answer is still waiting for its transition.
func Submit(s State, catalog puzzle.Catalog, candidate string) (State, Outcome) {
	if s.AllComplete || s.Transitioning {
		return s, OutcomeNone
	}

	if !catalog[s.CurrentIndex].Matches(candidate) {
		s.Feedback = FeedbackRetry
		return s.next(), OutcomeNone
	}

	s.Completed[s.CurrentIndex] = true
	s.Feedback = FeedbackCorrect
	s.PendingInput = ""
	s.HintVisible = false
	s.Transitioning = true

	if s.CurrentIndex == catalog.Last() {
		return s.next(), OutcomeFinish
	}
	return s.next(), OutcomeAdvance
}

// Advance moves to the next puzzle and clears feedback.
// It is a no-op unless an advance is pending.
func Advance(s State) State {
	if !s.Transitioning || s.AllComplete || s.CurrentIndex >= puzzle.Count-1 {
		return s
	}
	s.CurrentIndex++
	s.Feedback = FeedbackNone
	s.Transitioning = false
	return s.next()
}

// Finish enters the terminal Complete phase.
// It is a no-op unless the final puzzle has been answered.
func Finish(s State) State {
	if s.AllComplete || !s.Completed[puzzle.Count-1] {
		return s
	}
	s.AllComplete = true
	s.Transitioning = false
	return s.next()
}

// DismissCelebration hides the congratulations overlay. The game stays complete.
func DismissCelebration(s State) State {
	if !s.AllComplete || s.CelebrationDismissed {
		return s
	}
	s.CelebrationDismissed = true
	return s.next()
}
