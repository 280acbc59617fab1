// internal/game/types.go
//
// Core type definitions for the Mastermind code engine.
// Defines:
//   - GuessRecord: one evaluated guess (exact/partial match counts).
//   - Board dimension constants (code length, digit alphabet).

package game

const (
	// CodeLength is the number of digits in a secret code.
	CodeLength = 4

	// AlphabetSize is the number of distinct digit values (0..AlphabetSize-1).
	AlphabetSize = 10
)

// CandidateSpace is the total number of possible secrets.
func CandidateSpace() int {
	n := 1
	for i := 0; i < CodeLength; i++ {
		n *= AlphabetSize
	}
	return n
}

// GuessRecord holds one evaluated guess against a secret.
// Invariant: 0 <= Exact <= CodeLength and 0 <= Exact+Partial <= CodeLength.
type GuessRecord struct {
	Guess   string `json:"guess"`    // The guessed code (digit string).
	Exact   int    `json:"exact"`    // Digits correct in value and position.
	Partial int    `json:"wrongPos"` // Digits correct in value, wrong position.
}
