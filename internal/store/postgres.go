// internal/store/postgres.go
//
// PostgreSQL-backed session.Store on a pgx pool, selected when DATABASE_URL
// is set. Same JSON-record layout as the SQLite store; the claim query uses
// row locking with SKIP LOCKED so concurrent claimants never block on or
// double-claim the same waiting session.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aradz/mastermind-server/internal/session"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	p1_identity TEXT,
	p2_identity TEXT,
	version BIGINT NOT NULL DEFAULT 1,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sessions_status_mode ON sessions(status, mode);
CREATE INDEX IF NOT EXISTS idx_sessions_participants ON sessions(p1_identity, p2_identity);
`

type postgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the sessions table exists.
func NewPostgresStore(ctx context.Context, dsn string) (session.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}
	return &postgresStore{db: pool}, nil
}

func (st *postgresStore) Create(ctx context.Context, s *session.Session) error {
	s.Version = 1
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = st.db.Exec(ctx,
		`INSERT INTO sessions (id, mode, status, p1_identity, p2_identity, version, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, string(s.Mode), string(s.Status), slotIdentity(s, 0), slotIdentity(s, 1),
		s.Version, data, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (st *postgresStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var data []byte
	var version int64
	err := st.db.QueryRow(ctx, `SELECT data, version FROM sessions WHERE id=$1`, id).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(string(data), version)
}

func (st *postgresStore) AtomicUpdate(ctx context.Context, id string, mutate func(*session.Session) error) (*session.Session, error) {
	tx, err := st.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var data []byte
	var version int64
	err = tx.QueryRow(ctx, `SELECT data, version FROM sessions WHERE id=$1 FOR UPDATE`, id).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s, err := decodeSession(string(data), version)
	if err != nil {
		return nil, err
	}
	if err := mutate(s); err != nil {
		return nil, err
	}
	if err := writeSessionPG(ctx, tx, s, version); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *postgresStore) ClaimOneWaiting(ctx context.Context, mode session.Mode) (*session.Session, error) {
	tx, err := st.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var data []byte
	var version int64
	err = tx.QueryRow(ctx,
		`SELECT data, version FROM sessions
		 WHERE status=$1 AND mode=$2
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		string(session.StatusWaiting), string(mode),
	).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s, err := decodeSession(string(data), version)
	if err != nil {
		return nil, err
	}
	s.Status = session.StatusJoining
	if err := writeSessionPG(ctx, tx, s, version); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *postgresStore) ListInProgressFor(ctx context.Context, identity string) ([]*session.Session, error) {
	rows, err := st.db.Query(ctx,
		`SELECT data, version FROM sessions
		 WHERE status=$1 AND (p1_identity=$2 OR p2_identity=$2)`,
		string(session.StatusInProgress), identity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var data []byte
		var version int64
		if err := rows.Scan(&data, &version); err != nil {
			return nil, err
		}
		s, err := decodeSession(string(data), version)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func writeSessionPG(ctx context.Context, tx pgx.Tx, s *session.Session, prevVersion int64) error {
	s.Version = prevVersion + 1
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET status=$1, p1_identity=$2, p2_identity=$3, version=$4, data=$5
		 WHERE id=$6 AND version=$7`,
		string(s.Status), slotIdentity(s, 0), slotIdentity(s, 1), s.Version, data,
		s.ID, prevVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrConflict
	}
	return nil
}
