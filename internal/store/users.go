package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (fleet.User, error) {
	var u fleet.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

// UserByUsername returns the account for a login attempt.
func (s *Store) UserByUsername(ctx context.Context, username string) (fleet.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return fleet.User{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return fleet.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// CreateUser registers a new account. The caller supplies an already-hashed
// password.
func (s *Store) CreateUser(ctx context.Context, u fleet.User) (fleet.User, error) {
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = fleet.RoleOperator
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role,
	)
	created, err := scanUser(row)
	if err != nil {
		return fleet.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}
