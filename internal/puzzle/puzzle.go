// Package puzzle defines the fixed emoji-pattern puzzles that make up a game.
package puzzle

import "fmt"

// Count is the number of puzzles in a game. Each one is a piece of the heart.
const Count = 6

// Puzzle is a single pattern question with its expected answer and a hint.
type Puzzle struct {
	Question string `json:"question"`
	Answer   string `json:"-"`
	Hint     string `json:"hint"`
}

// Matches reports whether candidate is exactly the expected answer.
// Comparison is case-sensitive and does no trimming or normalization.
func (p Puzzle) Matches(candidate string) bool {
	return candidate == p.Answer
}

// Catalog is the ordered list of puzzles presented in a game.
type Catalog [Count]Puzzle

var defaultCatalog = Catalog{
	{
		Question: "❤️ 💕 ❤️ 💕 ❤️ ?",
		Answer:   "💕",
		Hint:     "The pattern alternates between ❤️ and 💕",
	},
	{
		Question: "💝 💖 💗 💖 💝 ?",
		Answer:   "💗",
		Hint:     "Look at how the pattern mirrors itself",
	},
	{
		Question: "❤️ 💓 💗 💓 ❤️ ?",
		Answer:   "💗",
		Hint:     "The pattern repeats in reverse",
	},
	{
		Question: "💘 💝 💖 💝 💘 ?",
		Answer:   "💖",
		Hint:     "Notice how it goes out and comes back",
	},
	{
		Question: "💖 💗 💖 💗 💖 ?",
		Answer:   "💗",
		Hint:     "Simple alternating pattern",
	},
	{
		Question: "💝 💖 💝 💖 💝 ?",
		Answer:   "💖",
		Hint:     "Look for the repeating sequence",
	},
}

// Default returns the built-in catalog. The returned value is a copy.
func Default() Catalog {
	return defaultCatalog
}

// Validate checks that every puzzle has a question and an answer.
func (c Catalog) Validate() error {
	for i, p := range c {
		if p.Question == "" {
			return fmt.Errorf("puzzle %d: question cannot be empty", i)
		}
		if p.Answer == "" {
			return fmt.Errorf("puzzle %d: answer cannot be empty", i)
		}
	}
	return nil
}

// Last returns the index of the final puzzle.
func (c Catalog) Last() int {
	return len(c) - 1
}
