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
	"testing"
	"time"

	"github.com/agoramarket/agora/internal/errs"
)

func newLockoutFixture(t *testing.T) (*MockUserRepository, *Lockout, *User) {
	t.Helper()
	repo := NewMockUserRepository()
	lockout := NewLockout(repo, &recordingAuditLogger{}, 5, 30*time.Minute)

	user := &User{ID: "u1", Username: "alice"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return repo, lockout, user
}

func TestLockout_RecordFailure_Threshold(t *testing.T) {
	_, lockout, user := newLockoutFixture(t)
	ctx := context.Background()

	// Failures below the threshold only count
	for i := 1; i <= 4; i++ {
		if err := lockout.RecordFailure(ctx, user); err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
		if user.IsLocked {
			t.Fatalf("locked after %d failures, threshold is 5", i)
		}
		if user.FailedAttempts != i {
			t.Fatalf("expected %d attempts, got %d", i, user.FailedAttempts)
		}
	}

	// The fifth failure locks with a timestamp
	if err := lockout.RecordFailure(ctx, user); err != nil {
		t.Fatalf("record locking failure: %v", err)
	}
	if !user.IsLocked {
		t.Error("expected account locked at threshold")
	}
	if user.LockedAt == nil {
		t.Error("locked account must carry the lock timestamp")
	}
}

func TestLockout_Check_LiveLock(t *testing.T) {
	_, lockout, user := newLockoutFixture(t)

	lockedAt := time.Now().Add(-time.Minute)
	user.FailedAttempts = 5
	user.IsLocked = true
	user.LockedAt = &lockedAt

	err := lockout.Check(context.Background(), user)
	if !errs.IsKind(err, errs.KindLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}

	var appErr *errs.Error
	if !errors.As(err, &appErr) || appErr.LockedAt == nil {
		t.Error("locked error must carry the lock timestamp")
	}
}

func TestLockout_Check_LazyUnlock(t *testing.T) {
	repo, lockout, user := newLockoutFixture(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	lockedAt := base.Add(-31 * time.Minute)
	user.FailedAttempts = 5
	user.IsLocked = true
	user.LockedAt = &lockedAt
	lockout.now = func() time.Time { return base }

	if err := lockout.Check(ctx, user); err != nil {
		t.Fatalf("expected elapsed lock to clear, got %v", err)
	}
	if user.IsLocked || user.LockedAt != nil || user.FailedAttempts != 0 {
		t.Error("expected lock state cleared in memory")
	}

	// The cleared state was persisted, not just mutated locally
	stored, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.IsLocked || stored.FailedAttempts != 0 {
		t.Error("expected cleared lock state to be persisted")
	}
}

func TestLockout_Check_ExactBoundary(t *testing.T) {
	_, lockout, user := newLockoutFixture(t)

	// Exactly the lockout duration has not elapsed "more than" the window:
	// the account stays locked until strictly past it.
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	lockedAt := base.Add(-30 * time.Minute)
	user.FailedAttempts = 5
	user.IsLocked = true
	user.LockedAt = &lockedAt
	lockout.now = func() time.Time { return base }

	if err := lockout.Check(context.Background(), user); !errs.IsKind(err, errs.KindLocked) {
		t.Errorf("expected still locked at exact boundary, got %v", err)
	}
}

func TestLockout_Check_LockedWithoutTimestamp(t *testing.T) {
	_, lockout, user := newLockoutFixture(t)

	// A locked row missing its timestamp cannot expire on its own.
	user.IsLocked = true
	user.LockedAt = nil

	if err := lockout.Check(context.Background(), user); !errs.IsKind(err, errs.KindLocked) {
		t.Errorf("expected locked error, got %v", err)
	}
}

func TestLockout_Reset(t *testing.T) {
	repo, lockout, user := newLockoutFixture(t)
	ctx := context.Background()

	user.FailedAttempts = 3
	if err := lockout.Reset(ctx, user); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if user.FailedAttempts != 0 {
		t.Error("expected counter cleared")
	}

	// Reset with nothing to clear must not touch the repository
	repo.failAll = true
	if err := lockout.Reset(ctx, user); err != nil {
		t.Errorf("expected clean-state reset to be a no-op, got %v", err)
	}
}

func TestLockout_RecordFailure_PersistError(t *testing.T) {
	repo, lockout, user := newLockoutFixture(t)

	repo.failAll = true
	err := lockout.RecordFailure(context.Background(), user)
	if !errs.IsKind(err, errs.KindDatabase) {
		t.Errorf("expected database error, got %v", err)
	}
	if user.FailedAttempts != 0 {
		t.Error("in-memory state must not advance when persistence fails")
	}
}
