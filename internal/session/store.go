// internal/session/store.go
//
// Persistence contract consumed by the lifecycle manager and matchmaker.
// Implementations live in internal/store (memory, SQLite, Postgres).

package session

import "context"

// Store is durable keyed storage for session records. All mutation goes
// through AtomicUpdate or ClaimOneWaiting; both must be exclusive under
// concurrent callers so a session is changed by one operation at a time.
type Store interface {
	// Create persists a brand-new session record.
	Create(ctx context.Context, s *Session) error

	// Get loads a session by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Session, error)

	// AtomicUpdate applies mutate under exclusive access and persists the
	// result. If mutate returns an error the record is left untouched and
	// the error is passed through. Returns ErrConflict when the update
	// lost a concurrent race.
	AtomicUpdate(ctx context.Context, id string, mutate func(*Session) error) (*Session, error)

	// ClaimOneWaiting atomically marks one waiting session of the given
	// mode as joining and returns it. At most one concurrent caller may
	// claim a given session. Returns ErrNotFound when none is waiting.
	ClaimOneWaiting(ctx context.Context, mode Mode) (*Session, error)

	// ListInProgressFor returns every in-progress session the identity
	// participates in.
	ListInProgressFor(ctx context.Context, identity string) ([]*Session, error)
}

// RatingStore persists post-game rating changes for human participants.
// Identities without a persisted row are skipped silently by implementations;
// a rating failure must never block session completion.
type RatingStore interface {
	ApplyResult(ctx context.Context, winnerID string, winnerRating float64, loserID string, loserRating float64) error
}
