// internal/store/elo.go
//
// SQL-backed rating persistence. Writes post-game Elo values onto the users
// table. Identities without a users row (the AI's synthetic identities, or
// a deleted account) simply match nothing — the update is skipped silently,
// which is the required behavior: rating bookkeeping never blocks a session
// from completing.

package store

import (
	"context"
	"database/sql"

	"github.com/aradz/mastermind-server/internal/session"
)

type eloStore struct {
	db *sql.DB
}

// NewEloStore persists rating results to the users table.
func NewEloStore(db *sql.DB) session.RatingStore {
	return &eloStore{db: db}
}

// ApplyResult writes both players' new ratings in one transaction.
func (e *eloStore) ApplyResult(ctx context.Context, winnerID string, winnerRating float64, loserID string, loserRating float64) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET elo_rating=? WHERE id=?`, winnerRating, winnerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET elo_rating=? WHERE id=?`, loserRating, loserID); err != nil {
		return err
	}
	return tx.Commit()
}
