// internal/ai/constraint.go
//
// Exhaustive constraint-satisfying solver. Walks the full candidate space in
// a shuffled order and returns the first candidate whose re-scored feedback
// matches every historical record. Brute force on purpose: the space is
// small (10^4 codes) and the solver runs once per turn, not in a hot loop.

package ai

import (
	"math/rand"
	"strings"

	"github.com/aradz/mastermind-server/internal/game"
)

type constraintSolver struct {
	rng *rand.Rand
}

// NextGuess returns a candidate consistent with all recorded feedback.
// The candidate order is shuffled per call to avoid positional bias.
// A fixed all-zero code is returned if no candidate fits; that only happens
// when the history itself is inconsistent (corrupted state), and returning
// a valid guess keeps the turn machine moving.
func (s *constraintSolver) NextGuess(history []game.GuessRecord) string {
	for _, n := range s.rng.Perm(game.CandidateSpace()) {
		candidate := game.SecretAt(n)
		if consistentWithAll(candidate, history) {
			return candidate
		}
	}
	return strings.Repeat("0", game.CodeLength)
}

func consistentWithAll(candidate string, history []game.GuessRecord) bool {
	for _, rec := range history {
		if !game.Consistent(candidate, rec) {
			return false
		}
	}
	return true
}
