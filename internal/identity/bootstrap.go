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
	"fmt"
	"os"

	"github.com/agoramarket/agora/internal/audit"
	"github.com/agoramarket/agora/internal/authz"
	"github.com/agoramarket/agora/internal/id"
)

const (
	EnvBootstrapAdminUsername = "AGORA_BOOTSTRAP_ADMIN_USERNAME"
	EnvBootstrapAdminPassword = "AGORA_BOOTSTRAP_ADMIN_PASSWORD"
)

// Bootstrap provisions the initial admin account from the environment.
// Self-registration only ever creates buyers, so the first admin has to come
// from somewhere; this runs once at startup and is a no-op when the
// variables are unset or the account already exists.
func (s *Service) Bootstrap(ctx context.Context) error {
	username := os.Getenv(EnvBootstrapAdminUsername)
	password := os.Getenv(EnvBootstrapAdminPassword)

	if username == "" {
		return nil
	}
	if password == "" {
		return fmt.Errorf("%s is set but %s is empty", EnvBootstrapAdminUsername, EnvBootstrapAdminPassword)
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	now := s.now()
	admin := &User{
		ID:           id.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         authz.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  admin.ID,
		Resource: "user",
		Metadata: map[string]any{audit.AttrReason: "bootstrap_admin"},
	})

	return nil
}
