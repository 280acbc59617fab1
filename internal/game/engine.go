// internal/game/engine.go
//
// Pure evaluation core for Mastermind.
// Responsibilities:
//   - Generate uniformly random secrets from a caller-supplied rand source.
//   - Validate guess shape (length, digit alphabet).
//   - Score guesses: exact matches plus multiset-overlap partial matches.
//
// Notes:
//   - Stateless; everything here is a function of its inputs.
//   - Repeated digits are handled by counting the total multiset overlap
//     between secret and guess, then subtracting the exact matches
//     (e.g. secret "1123", guess "1111" → exact 2, partial 0).
package game

import (
	"math/rand"
	"strings"
)

// NewSecret draws a uniformly random secret code from rng.
// Each position is an independent uniform digit.
func NewSecret(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(digitByte(rng.Intn(AlphabetSize)))
	}
	return b.String()
}

// SecretAt maps an index in [0, CandidateSpace()) to its code string,
// most significant digit first. Used by the exhaustive solver to walk
// the full candidate space.
func SecretAt(n int) string {
	b := make([]byte, CodeLength)
	for i := CodeLength - 1; i >= 0; i-- {
		b[i] = digitByte(n % AlphabetSize)
		n /= AlphabetSize
	}
	return string(b)
}

// Validate reports whether guess is a well-formed code: exactly CodeLength
// characters, each a digit inside the configured alphabet. Malformed guesses
// must be rejected by callers and never evaluated.
func Validate(guess string) bool {
	if len(guess) != CodeLength {
		return false
	}
	for i := 0; i < len(guess); i++ {
		d := int(guess[i] - '0')
		if d < 0 || d >= AlphabetSize {
			return false
		}
	}
	return true
}

// Evaluate scores guess against secret.
//
// exact is the count of positions where the two codes agree. partial is the
// count of additional digit-value matches: for each digit value, the overlap
// min(count in secret, count in guess) is summed, and the exact matches are
// subtracted from the total.
//
// Both inputs must already be validated to equal length over the digit
// alphabet.
func Evaluate(secret, guess string) (exact, partial int) {
	var secretCounts, guessCounts [AlphabetSize]int
	for i := 0; i < len(secret); i++ {
		if secret[i] == guess[i] {
			exact++
		}
		secretCounts[secret[i]-'0']++
		guessCounts[guess[i]-'0']++
	}

	total := 0
	for d := 0; d < AlphabetSize; d++ {
		total += min(secretCounts[d], guessCounts[d])
	}
	partial = total - exact
	return exact, partial
}

// Consistent reports whether candidate could be the true secret given rec:
// re-scoring the recorded guess against candidate must reproduce the
// recorded feedback exactly.
func Consistent(candidate string, rec GuessRecord) bool {
	exact, partial := Evaluate(candidate, rec.Guess)
	return exact == rec.Exact && partial == rec.Partial
}

func digitByte(d int) byte { return byte('0' + d) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
