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
	"time"

	"github.com/agoramarket/agora/internal/audit"
	"github.com/agoramarket/agora/internal/errs"
)

// Lockout tracks failed-login state per account. The state itself lives on
// the user row; this type owns the transitions and persists each one
// synchronously before the login response is returned.
//
// Policy: an account locks after maxAttempts consecutive failures and
// unlocks lazily once the lockout duration has elapsed, evaluated on the
// next login attempt rather than by a background timer.
type Lockout struct {
	repo        Repository
	auditLogger audit.Logger
	maxAttempts int
	duration    time.Duration
	now         func() time.Time
}

// NewLockout creates a lockout manager.
func NewLockout(repo Repository, auditLogger audit.Logger, maxAttempts int, duration time.Duration) *Lockout {
	return &Lockout{
		repo:        repo,
		auditLogger: auditLogger,
		maxAttempts: maxAttempts,
		duration:    duration,
		now:         time.Now,
	}
}

// Check evaluates the lock state before a credential check. A lock whose
// duration has elapsed is cleared (persisted first); a live lock rejects the
// attempt with a Locked error carrying locked_at for client display.
func (l *Lockout) Check(ctx context.Context, user *User) error {
	if !user.IsLocked {
		return nil
	}

	// A locked row without a timestamp cannot expire; treat it as locked
	// until an operator intervenes.
	if user.LockedAt != nil && l.now().Sub(*user.LockedAt) > l.duration {
		if err := l.repo.UpdateLockState(ctx, user.ID, 0, false, nil); err != nil {
			return errs.Database(err)
		}
		user.FailedAttempts = 0
		user.IsLocked = false
		user.LockedAt = nil

		l.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeUserUnlocked,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "lockout_elapsed"},
		})
		return nil
	}

	return errs.Locked(user.LockedAt)
}

// RecordFailure counts a failed verification and locks the account when the
// threshold is reached. The transition is persisted before returning.
func (l *Lockout) RecordFailure(ctx context.Context, user *User) error {
	attempts := user.FailedAttempts + 1

	if attempts >= l.maxAttempts {
		lockedAt := l.now()
		if err := l.repo.UpdateLockState(ctx, user.ID, attempts, true, &lockedAt); err != nil {
			return errs.Database(err)
		}
		user.FailedAttempts = attempts
		user.IsLocked = true
		user.LockedAt = &lockedAt

		l.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeUserLocked,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrAttempts: attempts},
		})
		return nil
	}

	if err := l.repo.UpdateLockState(ctx, user.ID, attempts, false, nil); err != nil {
		return errs.Database(err)
	}
	user.FailedAttempts = attempts
	return nil
}

// Reset clears the failure counter after a successful verification. A no-op
// when there is nothing to clear.
func (l *Lockout) Reset(ctx context.Context, user *User) error {
	if user.FailedAttempts == 0 && !user.IsLocked {
		return nil
	}
	if err := l.repo.UpdateLockState(ctx, user.ID, 0, false, nil); err != nil {
		return errs.Database(err)
	}
	user.FailedAttempts = 0
	user.IsLocked = false
	user.LockedAt = nil
	return nil
}
