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

package authz

import (
	"context"

	"github.com/agoramarket/agora/internal/audit"
	"github.com/agoramarket/agora/internal/errs"
)

// Identity is the validated acting identity attached to a request after
// token validation. It carries no database handle; resource owners must be
// resolved by the caller before invoking ownership checks.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// Guard makes admit/reject decisions from a validated identity and a
// role/ownership policy. Every rejection is audited with the acting identity
// and the required permission.
type Guard struct {
	auditLogger audit.Logger
}

// NewGuard creates a new authorization guard.
func NewGuard(auditLogger audit.Logger) *Guard {
	return &Guard{auditLogger: auditLogger}
}

// RequireIdentity admits when ident is present (non-nil). Absence means the
// request never passed token validation, so the rejection is an
// authentication failure, not an authorization one.
func (g *Guard) RequireIdentity(ctx context.Context, ident *Identity) error {
	if ident == nil {
		g.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeAccessDenied,
			Resource: "authentication",
			Metadata: map[string]any{audit.AttrReason: "missing_identity"},
		})
		return errs.InvalidToken()
	}
	return nil
}

// RequireRole admits when the identity's role satisfies required. A single
// role-parameterized check replaces per-role closures so the closed role set
// stays exhaustively checkable.
func (g *Guard) RequireRole(ctx context.Context, ident *Identity, required Role) error {
	if err := g.RequireIdentity(ctx, ident); err != nil {
		return err
	}
	if ident.Role.Satisfies(required) {
		return nil
	}
	g.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		ActorID:  ident.UserID,
		Resource: "role",
		Metadata: map[string]any{
			audit.AttrRequiredRole: required.String(),
			audit.AttrReason:       "insufficient_role",
		},
	})
	return errs.Forbidden("role '" + required.String() + "' required")
}

// RequireOwnership admits admins unconditionally, otherwise only the owner
// of the targeted resource. ownerID must already be resolved by the business
// handler; the guard has no database access.
func (g *Guard) RequireOwnership(ctx context.Context, ident *Identity, ownerID string) error {
	if err := g.RequireIdentity(ctx, ident); err != nil {
		return err
	}
	if ident.Role == RoleAdmin {
		return nil
	}
	if ident.UserID == ownerID {
		return nil
	}
	g.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		ActorID:  ident.UserID,
		Resource: "ownership",
		Metadata: map[string]any{
			audit.AttrOwnerID: ownerID,
			audit.AttrReason:  "not_owner",
		},
	})
	return errs.Forbidden("")
}
