// internal/httpserver/users.go
//
// User persistence helpers for the auth routes. Users carry an Elo rating
// (default 1200) that the session manager updates through the rating store
// after decisive games. Guests are ordinary rows without credentials.

package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// defaultEloRating is the starting rating for every new account.
const defaultEloRating = 1200

var errUsernameTaken = errors.New("username taken")

// userRow matches the users table shape.
type userRow struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	IsGuest      bool
	EloRating    float64
	CreatedAt    time.Time
}

// createUser validates input, checks uniqueness, hashes the password, and
// inserts a new user. displayName falls back to the username.
func (s *Server) createUser(username, pw, displayName string) (*userRow, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = username
	}
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	switch {
	case err == nil:
		return nil, errUsernameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check username: %w", err)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	id := uuid.NewString()
	if _, err := s.db.Exec(
		`INSERT INTO users (id, username, display_name, password_hash, is_guest, elo_rating, created_at)
		 VALUES (?,?,?,?,0,?,?)`,
		id, username, displayName, string(h), defaultEloRating, now); err != nil {
		return nil, err
	}
	return &userRow{
		ID: id, Username: username, DisplayName: displayName,
		PasswordHash: string(h), EloRating: defaultEloRating, CreatedAt: mustParse(now),
	}, nil
}

// createGuest inserts a credential-less user.
func (s *Server) createGuest(displayName string) (*userRow, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	id := uuid.NewString()
	if _, err := s.db.Exec(
		`INSERT INTO users (id, display_name, is_guest, elo_rating, created_at)
		 VALUES (?,?,1,?,?)`,
		id, displayName, defaultEloRating, now); err != nil {
		return nil, err
	}
	return &userRow{
		ID: id, DisplayName: displayName, IsGuest: true,
		EloRating: defaultEloRating, CreatedAt: mustParse(now),
	}, nil
}

// findUserByUsername/ID load a user row or return an error if missing.
func (s *Server) findUserByUsername(username string) (*userRow, error) {
	row := s.db.QueryRow(
		`SELECT id, COALESCE(username,''), display_name, COALESCE(password_hash,''), is_guest, elo_rating, created_at
		 FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}
func (s *Server) findUserByID(id string) (*userRow, error) {
	row := s.db.QueryRow(
		`SELECT id, COALESCE(username,''), display_name, COALESCE(password_hash,''), is_guest, elo_rating, created_at
		 FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.IsGuest, &u.EloRating, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = mustParse(created)
	return &u, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// checkPassword is a bcrypt verifier. Guests have no hash and never pass.
func checkPassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}
