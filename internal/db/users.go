package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, username, COALESCE(name, ''), user_group, COALESCE(password_hash, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.UserGroup, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and returns the stored row
func (db *DB) CreateUser(ctx context.Context, u *User) (*User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	created, err := scanUser(db.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, username, name, user_group, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		u.ID, u.Email, u.Username, nullIfEmpty(u.Name), u.UserGroup, nullIfEmpty(u.PasswordHash),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetUserByID retrieves a user by ID. Returns nil, nil when absent.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email. Returns nil, nil when absent.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// UsernameExists reports whether the username is taken
func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// UpdateUser writes the mutable user fields. Returns nil, nil when absent.
func (db *DB) UpdateUser(ctx context.Context, u *User) (*User, error) {
	updated, err := scanUser(db.pool.QueryRow(ctx,
		`UPDATE users
		 SET email = $2, username = $3, name = $4, user_group = $5,
		     password_hash = COALESCE($6, password_hash), updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		u.ID, u.Email, u.Username, nullIfEmpty(u.Name), u.UserGroup, nullIfEmpty(u.PasswordHash),
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// DeleteUser removes a user and, by cascade, all of their records
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
