// internal/ai/solver.go
//
// AI opponents for Mastermind.
// Responsibilities:
//   - Solver: the strategy contract (next guess from own guess history).
//   - Difficulty: enum of available strategies.
//   - New: factory selecting a concrete solver; unknown values fail closed.
//   - Profile: display identity + fixed rating for each synthetic opponent.
//
// Strategies never fail: a solver always returns a valid guess so an AI turn
// cannot block the session state machine.

package ai

import (
	"errors"
	"math/rand"

	"github.com/aradz/mastermind-server/internal/game"
)

// Difficulty selects an AI strategy.
type Difficulty string

const (
	// DifficultyRandom guesses randomly, avoiding repeats.
	DifficultyRandom Difficulty = "random"

	// DifficultySolver exhaustively searches for a constraint-consistent guess.
	DifficultySolver Difficulty = "solver"
)

// ErrUnknownDifficulty is returned by New for unrecognized difficulty values.
var ErrUnknownDifficulty = errors.New("unknown ai difficulty")

// Solver produces the AI's next guess given the guesses it has already made.
type Solver interface {
	NextGuess(history []game.GuessRecord) string
}

// Profile is the synthetic player identity an AI occupies in a session.
type Profile struct {
	Identity string
	Name     string
	Rating   float64
}

// New returns the solver for difficulty, drawing randomness from rng.
// Unrecognized difficulties are rejected rather than silently defaulted.
func New(difficulty Difficulty, rng *rand.Rand) (Solver, error) {
	switch difficulty {
	case DifficultyRandom:
		return &randomSolver{rng: rng}, nil
	case DifficultySolver:
		return &constraintSolver{rng: rng}, nil
	default:
		return nil, ErrUnknownDifficulty
	}
}

// ProfileFor returns the display profile of the AI at difficulty.
// The ratings are fixed: the random bot plays at the new-player baseline,
// the exhaustive bot well above it.
func ProfileFor(difficulty Difficulty) (Profile, error) {
	switch difficulty {
	case DifficultyRandom:
		return Profile{Identity: "ai:randy", Name: "Randy", Rating: 1200}, nil
	case DifficultySolver:
		return Profile{Identity: "ai:aradz", Name: "Aradz", Rating: 2000}, nil
	default:
		return Profile{}, ErrUnknownDifficulty
	}
}
