package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// usernameRE is the fixed pattern a valid username must match in full.
var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ErrInvalidUsername is returned when a candidate username fails validation.
// No query is executed for an invalid username.
var ErrInvalidUsername = errors.New("invalid username format")

// ErrUserNotFound is returned when no user matches the given username.
var ErrUserNotFound = errors.New("user not found")

// User is a single row from the users table
type User struct {
	ID       int64
	Username string
}

// ValidateUsername trims surrounding whitespace and checks the candidate
// against the fixed pattern (alphanumeric and underscore, length 3-20).
// Returns the trimmed username, or ErrInvalidUsername on mismatch.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if !usernameRE.MatchString(username) {
		return "", fmt.Errorf("%w: must be 3-20 characters of [a-zA-Z0-9_]", ErrInvalidUsername)
	}
	return username, nil
}

// GetUserByUsername looks up a user by username. The input is validated
// before any data access, then bound as a query parameter, never
// concatenated into the query text. Returns ErrUserNotFound when no row
// matches.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username, err := ValidateUsername(username)
	if err != nil {
		return nil, err
	}

	var user User
	err = s.db.QueryRowContext(ctx,
		"SELECT id, username FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// CreateUser inserts a user after validating the username.
func (s *Store) CreateUser(ctx context.Context, username string) (*User, error) {
	username, err := ValidateUsername(username)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username) VALUES (?)",
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &User{ID: id, Username: username}, nil
}
