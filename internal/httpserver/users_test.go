package httpserver

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersSchema = `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	username TEXT UNIQUE,
	display_name TEXT NOT NULL,
	password_hash TEXT,
	is_guest INTEGER NOT NULL DEFAULT 0,
	elo_rating REAL NOT NULL DEFAULT 1200,
	created_at TEXT NOT NULL
);`

func newUserTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(usersSchema)
	require.NoError(t, err)
	return &Server{db: db}
}

func TestCreateUserAndLookup(t *testing.T) {
	s := newUserTestServer(t)

	u, err := s.createUser("alice", "correct-horse", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, float64(defaultEloRating), u.EloRating)
	assert.True(t, checkPassword(u.PasswordHash, "correct-horse"))
	assert.False(t, checkPassword(u.PasswordHash, "wrong-horse"))

	loaded, err := s.findUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, loaded.ID)

	byID, err := s.findUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", byID.DisplayName)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	s := newUserTestServer(t)

	_, err := s.createUser("alice", "correct-horse", "")
	require.NoError(t, err)

	// Case-insensitive: the check query lowers both sides.
	_, err = s.createUser("ALICE", "another-pass", "")
	assert.ErrorIs(t, err, errUsernameTaken)
}

func TestCreateUserSurfacesCheckFailure(t *testing.T) {
	s := newUserTestServer(t)
	require.NoError(t, s.db.Close())

	// A failing uniqueness query must not read as "username free".
	_, err := s.createUser("alice", "correct-horse", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errUsernameTaken))
	assert.ErrorContains(t, err, "check username")
}

func TestCreateGuest(t *testing.T) {
	s := newUserTestServer(t)

	u, err := s.createGuest("Drop-in")
	require.NoError(t, err)
	assert.True(t, u.IsGuest)
	assert.Empty(t, u.PasswordHash)

	loaded, err := s.findUserByID(u.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Username)
	// Guests have no credentials and can never pass a password check.
	assert.False(t, checkPassword(loaded.PasswordHash, ""))
}

func TestValidateSignup(t *testing.T) {
	cases := []struct {
		name     string
		username string
		password string
		ok       bool
	}{
		{"valid", "alice_99", "longenough", true},
		{"username too short", "al", "longenough", false},
		{"username too long", "abcdefghijklmnopqrstuvwxy", "longenough", false},
		{"bad username chars", "al ice", "longenough", false},
		{"password too short", "alice", "short", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSignup(tc.username, tc.password)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
