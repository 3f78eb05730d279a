package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facebot/internal/database"
)

// AddUser registers a user with a role; existing rows are left untouched.
func (s *Store) AddUser(ctx context.Context, username, userType string) error {
	query := `
		INSERT INTO users (username, type)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, username, userType); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// RemoveUser deletes a user with the given role.
func (s *Store) RemoveUser(ctx context.Context, username, userType string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM users WHERE username = $1 AND type = $2", username, userType); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// FindUser returns the user, or nil when not registered.
func (s *Store) FindUser(ctx context.Context, username string) (*database.User, error) {
	var u database.User
	err := s.pool.QueryRow(ctx, "SELECT username, type FROM users WHERE username = $1", username).Scan(&u.Username, &u.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users with the given role.
func (s *Store) ListUsers(ctx context.Context, userType string) ([]database.User, error) {
	rows, err := s.pool.Query(ctx, "SELECT username, type FROM users WHERE type = $1 ORDER BY username", userType)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []database.User
	for rows.Next() {
		var u database.User
		if err := rows.Scan(&u.Username, &u.Type); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
