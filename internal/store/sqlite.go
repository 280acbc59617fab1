// internal/store/sqlite.go
//
// SQLite-backed session.Store. The default durable store.
//
// Layout: the full session record lives as JSON in the data column; mode,
// status, and the two participant identities are mirrored into indexed
// columns for claim and list queries. Concurrency control is an optimistic
// version check: every write is `... WHERE id=? AND version=?`, and zero
// affected rows reports session.ErrConflict.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aradz/mastermind-server/internal/session"
)

// sqliteStore persists sessions in the sessions table (see sql/ migrations).
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened database handle. The sessions table must
// already exist (migrations run at startup).
func NewSQLiteStore(db *sql.DB) session.Store {
	return &sqliteStore{db: db}
}

func (st *sqliteStore) Create(ctx context.Context, s *session.Session) error {
	s.Version = 1
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = st.db.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, status, p1_identity, p2_identity, version, data, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, string(s.Mode), string(s.Status), slotIdentity(s, 0), slotIdentity(s, 1),
		s.Version, string(data), s.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (st *sqliteStore) Get(ctx context.Context, id string) (*session.Session, error) {
	row := st.db.QueryRowContext(ctx, `SELECT data, version FROM sessions WHERE id=?`, id)
	return scanSession(row)
}

func (st *sqliteStore) AtomicUpdate(ctx context.Context, id string, mutate func(*session.Session) error) (*session.Session, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	s, err := scanSession(tx.QueryRowContext(ctx, `SELECT data, version FROM sessions WHERE id=?`, id))
	if err != nil {
		return nil, err
	}
	prev := s.Version
	if err := mutate(s); err != nil {
		return nil, err
	}
	if err := writeSession(ctx, tx, s, prev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *sqliteStore) ClaimOneWaiting(ctx context.Context, mode session.Mode) (*session.Session, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT data, version FROM sessions WHERE status=? AND mode=? LIMIT 1`,
		string(session.StatusWaiting), string(mode),
	)
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	prev := s.Version
	s.Status = session.StatusJoining
	if err := writeSession(ctx, tx, s, prev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *sqliteStore) ListInProgressFor(ctx context.Context, identity string) ([]*session.Session, error) {
	rows, err := st.db.QueryContext(ctx,
		`SELECT data, version FROM sessions
		 WHERE status=? AND (p1_identity=? OR p2_identity=?)`,
		string(session.StatusInProgress), identity, identity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var data string
		var version int64
		if err := rows.Scan(&data, &version); err != nil {
			return nil, err
		}
		s, err := decodeSession(data, version)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// writeSession persists the mutated record, bumping the version and failing
// with ErrConflict when another writer got there first.
func writeSession(ctx context.Context, tx *sql.Tx, s *session.Session, prevVersion int64) error {
	s.Version = prevVersion + 1
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status=?, p1_identity=?, p2_identity=?, version=?, data=?
		 WHERE id=? AND version=?`,
		string(s.Status), slotIdentity(s, 0), slotIdentity(s, 1), s.Version, string(data),
		s.ID, prevVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return session.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var data string
	var version int64
	if err := row.Scan(&data, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return decodeSession(data, version)
}

func decodeSession(data string, version int64) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s.Version = version
	return &s, nil
}

// slotIdentity is the identity mirrored into an indexed column, or NULL.
func slotIdentity(s *session.Session, idx int) any {
	if idx >= len(s.Slots) || s.Slots[idx].Identity == "" {
		return nil
	}
	return s.Slots[idx].Identity
}
