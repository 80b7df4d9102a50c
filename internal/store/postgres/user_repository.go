// Copyright 2026 The Agora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agoramarket/agora/internal/authz"
	"github.com/agoramarket/agora/internal/identity"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, password_hash, pgp_public_key, role, reputation,
			failed_attempts, is_locked, locked_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		user.ID, user.Username, user.PasswordHash, nullString(user.PGPPublicKey),
		string(user.Role), user.Reputation,
		user.FailedAttempts, user.IsLocked, user.LockedAt,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.get(ctx, `WHERE username = $1`, username)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*identity.User, error) {
	var (
		user     identity.User
		role     string
		pgpKey   sql.NullString
		lockedAt sql.NullTime
	)

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, pgp_public_key, role, reputation,
			failed_attempts, is_locked, locked_at, created_at, updated_at
		FROM users
	`+where, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &pgpKey, &role, &user.Reputation,
		&user.FailedAttempts, &user.IsLocked, &lockedAt, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	parsedRole, err := authz.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("stored role is invalid: %w", err)
	}
	user.Role = parsedRole

	if pgpKey.Valid {
		user.PGPPublicKey = pgpKey.String
	}
	if lockedAt.Valid {
		user.LockedAt = &lockedAt.Time
	}

	return &user, nil
}

// UpdateLockState persists the lockout state machine in one write.
func (r *UserRepository) UpdateLockState(ctx context.Context, userID string, failedAttempts int, isLocked bool, lockedAt *time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET failed_attempts = $2, is_locked = $3, locked_at = $4, updated_at = NOW()
		WHERE id = $1
	`, userID, failedAttempts, isLocked, lockedAt)
	if err != nil {
		return fmt.Errorf("failed to update lock state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
