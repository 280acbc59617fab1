package ai

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradz/mastermind-server/internal/game"
)

func TestFactoryRejectsUnknownDifficulty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := New(Difficulty("impossible"), rng)
	assert.ErrorIs(t, err, ErrUnknownDifficulty)

	_, err = New(Difficulty(""), rng)
	assert.ErrorIs(t, err, ErrUnknownDifficulty)

	_, err = ProfileFor(Difficulty("impossible"))
	assert.ErrorIs(t, err, ErrUnknownDifficulty)
}

func TestFactoryKnownDifficulties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, d := range []Difficulty{DifficultyRandom, DifficultySolver} {
		solver, err := New(d, rng)
		require.NoError(t, err)
		require.True(t, game.Validate(solver.NextGuess(nil)))

		profile, err := ProfileFor(d)
		require.NoError(t, err)
		assert.NotEmpty(t, profile.Identity)
		assert.NotEmpty(t, profile.Name)
		assert.Greater(t, profile.Rating, 0.0)
	}
}

func TestRandomSolverAvoidsRepeats(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	solver := &randomSolver{rng: rng}
	history := []game.GuessRecord{
		{Guess: "1234"}, {Guess: "0000"}, {Guess: "9999"}, {Guess: "4242"},
	}
	used := map[string]bool{"1234": true, "0000": true, "9999": true, "4242": true}
	for i := 0; i < 50; i++ {
		g := solver.NextGuess(history)
		require.True(t, game.Validate(g))
		assert.False(t, used[g], "repeated prior guess %q", g)
	}
}

// consistentCount scans the whole candidate space for codes matching every
// feedback record.
func consistentCount(history []game.GuessRecord) int {
	n := 0
	for i := 0; i < game.CandidateSpace(); i++ {
		candidate := game.SecretAt(i)
		ok := true
		for _, rec := range history {
			if !game.Consistent(candidate, rec) {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}

func TestConstraintSolverSolvesGame(t *testing.T) {
	secrets := []string{"1243", "0000", "1123", "9876"}
	for _, secret := range secrets {
		rng := rand.New(rand.NewSource(7))
		solver := &constraintSolver{rng: rng}

		var history []game.GuessRecord
		prevCandidates := game.CandidateSpace()
		solved := false
		for turn := 0; turn < 100; turn++ {
			guess := solver.NextGuess(history)
			require.True(t, game.Validate(guess))

			exact, partial := game.Evaluate(secret, guess)
			history = append(history, game.GuessRecord{Guess: guess, Exact: exact, Partial: partial})

			// Every proposed guess must be consistent with what was
			// already known, so the candidate set never grows.
			candidates := consistentCount(history)
			require.LessOrEqual(t, candidates, prevCandidates, "secret %s turn %d", secret, turn)
			prevCandidates = candidates

			if exact == game.CodeLength {
				solved = true
				break
			}
		}
		assert.True(t, solved, "secret %s never found", secret)
	}
}

func TestConstraintSolverFallsBackOnCorruptHistory(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	solver := &constraintSolver{rng: rng}
	// Two records claiming different full matches: nothing can satisfy both.
	history := []game.GuessRecord{
		{Guess: "0000", Exact: game.CodeLength},
		{Guess: "1111", Exact: game.CodeLength},
	}
	assert.Equal(t, "0000", solver.NextGuess(history))
}
