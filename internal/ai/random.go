// internal/ai/random.go
//
// Randomized solver: uniform random guesses that avoid repeating anything
// already in the history. Feedback content is never inspected.

package ai

import (
	"math/rand"

	"github.com/aradz/mastermind-server/internal/game"
)

// maxDrawAttempts bounds the retry loop when avoiding repeats. After this
// many collisions a repeated guess is accepted rather than looping forever.
const maxDrawAttempts = 100

type randomSolver struct {
	rng *rand.Rand
}

// NextGuess draws random codes until one not present in history appears,
// giving up after maxDrawAttempts and returning the last draw as-is.
func (s *randomSolver) NextGuess(history []game.GuessRecord) string {
	used := make(map[string]struct{}, len(history))
	for _, rec := range history {
		used[rec.Guess] = struct{}{}
	}

	guess := game.NewSecret(s.rng)
	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		if _, seen := used[guess]; !seen {
			return guess
		}
		guess = game.NewSecret(s.rng)
	}
	return guess
}
