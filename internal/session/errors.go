// internal/session/errors.go
//
// Error taxonomy for session operations. Callers classify with errors.Is:
//   - validation errors: malformed input, never retried;
//   - not found: unknown session or a non-participant identity — the same
//     error for both, so callers cannot probe for other players' sessions;
//   - illegal state: legal input arriving at the wrong lifecycle moment;
//   - conflict: an atomic update lost a race; safe to retry once.

package session

import (
	"errors"

	"github.com/aradz/mastermind-server/internal/ai"
)

var (
	// ErrNotFound covers unknown session IDs and non-participant access.
	ErrNotFound = errors.New("session not found")

	// ErrBadGuess is a guess failing the length/alphabet check.
	ErrBadGuess = errors.New("invalid guess format")

	// ErrUnknownMode is a create request with an unrecognized mode.
	ErrUnknownMode = errors.New("unknown game mode")

	// ErrBadSecret is a player-supplied secret failing the shape check.
	ErrBadSecret = errors.New("invalid secret format")

	// ErrWrongTurn is a guess by the participant not holding the turn.
	ErrWrongTurn = errors.New("not your turn")

	// ErrTerminal is any play action on a completed or abandoned session.
	ErrTerminal = errors.New("session already finished")

	// ErrNotStarted is a play action on a pvp session still waiting/joining.
	ErrNotStarted = errors.New("session not started")

	// ErrNoOpponent is an opponent-directed action on a solo session.
	ErrNoOpponent = errors.New("session has no opponent")

	// ErrConflict is an atomic update that lost a concurrent race.
	ErrConflict = errors.New("concurrent session update")
)

// IsValidation reports whether err is caller input the request layer should
// reject outright.
func IsValidation(err error) bool {
	return errors.Is(err, ErrBadGuess) ||
		errors.Is(err, ErrUnknownMode) ||
		errors.Is(err, ErrBadSecret) ||
		errors.Is(err, ai.ErrUnknownDifficulty)
}

// IsIllegalState reports whether err is a lifecycle violation.
func IsIllegalState(err error) bool {
	return errors.Is(err, ErrWrongTurn) ||
		errors.Is(err, ErrTerminal) ||
		errors.Is(err, ErrNotStarted) ||
		errors.Is(err, ErrNoOpponent)
}
