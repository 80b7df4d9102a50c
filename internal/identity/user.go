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

package identity

import (
	"context"
	"errors"
	"time"

	"github.com/agoramarket/agora/internal/authz"
)

// Domain errors. The service maps these to the application taxonomy at the
// boundary; ErrUserNotFound in particular must never leak to a login caller.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// User represents a marketplace account. PasswordHash is opaque outside the
// hasher; Reputation and PGPPublicKey belong to the marketplace domain and
// pass through untouched.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	PGPPublicKey string
	Role         authz.Role
	Reputation   float64

	// Lock state. LockedAt is set if and only if IsLocked is true.
	FailedAttempts int
	IsLocked       bool
	LockedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the client-visible projection of a User. It never carries
// the password hash or lock bookkeeping.
type PublicUser struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PGPPublicKey string     `json:"pgp_public_key,omitempty"`
	Role         authz.Role `json:"role"`
	Reputation   float64    `json:"reputation"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Public returns the client-visible projection.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		PGPPublicKey: u.PGPPublicKey,
		Role:         u.Role,
		Reputation:   u.Reputation,
		CreatedAt:    u.CreatedAt,
	}
}

// Repository defines the interface for user persistence. Implementations
// return ErrUserNotFound for missing rows and keep the locked_at/is_locked
// invariant on every write.
type Repository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdateLockState persists the lockout state machine in one write.
	// lockedAt must be non-nil exactly when isLocked is true.
	UpdateLockState(ctx context.Context, userID string, failedAttempts int, isLocked bool, lockedAt *time.Time) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
