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
	"log/slog"
	"time"

	"github.com/agoramarket/agora/internal/audit"
	"github.com/agoramarket/agora/internal/authz"
	"github.com/agoramarket/agora/internal/errs"
	"github.com/agoramarket/agora/internal/id"
	"github.com/agoramarket/agora/internal/observability/logger"
	"github.com/agoramarket/agora/internal/observability/metrics"
)

// Service provides account registration and credential checking. All
// Argon2 work is dispatched through the hash pool; the lockout manager owns
// the failed-login state machine.
type Service struct {
	repo        Repository
	hasher      *Hasher
	pool        *HashPool
	lockout     *Lockout
	auditLogger audit.Logger
	metrics     *metrics.AuthMetrics
	now         func() time.Time
}

// NewService creates a new identity service. metrics may be nil in tests.
func NewService(
	repo Repository,
	hasher *Hasher,
	pool *HashPool,
	lockout *Lockout,
	auditLogger audit.Logger,
	authMetrics *metrics.AuthMetrics,
) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		pool:        pool,
		lockout:     lockout,
		auditLogger: auditLogger,
		metrics:     authMetrics,
		now:         time.Now,
	}
}

// Register creates a new buyer account. Every self-registered account is a
// buyer; privileged roles are granted out of band.
func (s *Service) Register(ctx context.Context, username, password, pgpPublicKey string) (*User, error) {
	if username == "" {
		return nil, errs.Validation("username is required")
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, errs.Database(err)
	}
	if existing != nil {
		return nil, errs.Validation("username already exists")
	}

	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &User{
		ID:           id.New(),
		Username:     username,
		PasswordHash: hash,
		PGPPublicKey: pgpPublicKey,
		Role:         authz.RoleBuyer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, errs.Database(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  user.ID,
		Resource: "user",
	})

	return user, nil
}

// Authenticate runs the credential-check pipeline: lockout check, password
// verification, lockout update on failure, counter reset on success.
// Unknown usernames and wrong passwords are externally identical.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.Add(ctx, 1)
	}

	if username == "" {
		return nil, errs.Validation("username is required")
	}
	if password == "" {
		return nil, errs.Validation("password is required")
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.countFailure(ctx)
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeLoginFailed,
				Resource: "login",
				Metadata: map[string]any{audit.AttrReason: "user_not_found"},
			})
			return nil, errs.WrongCredentials()
		}
		return nil, errs.Database(err)
	}

	if err := s.lockout.Check(ctx, user); err != nil {
		if errs.IsKind(err, errs.KindLocked) {
			s.countFailure(ctx)
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeLoginFailed,
				ActorID:  user.ID,
				Resource: "login",
				Metadata: map[string]any{audit.AttrReason: "locked_out"},
			})
		}
		return nil, err
	}

	ok, err := s.verifyPassword(ctx, password, user.PasswordHash)
	if err != nil {
		if errors.Is(err, ErrMalformedHash) {
			// Stored hash is corrupt. Fail the attempt like a mismatch but
			// record the corruption for operators.
			slog.ErrorContext(ctx, "stored password hash is malformed",
				logger.UserID(user.ID), logger.Error(err))
		} else {
			return nil, err
		}
		ok = false
	}

	if !ok {
		if lerr := s.lockout.RecordFailure(ctx, user); lerr != nil {
			return nil, lerr
		}
		if user.IsLocked && s.metrics != nil {
			s.metrics.Lockouts.Add(ctx, 1)
		}
		s.countFailure(ctx)
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{
				audit.AttrReason:   "invalid_password",
				audit.AttrAttempts: user.FailedAttempts,
			},
		})
		return nil, errs.WrongCredentials()
	}

	if err := s.lockout.Reset(ctx, user); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  user.ID,
		Resource: "login",
	})

	return user, nil
}

// ChangePassword verifies the old password and stores a hash of the new one.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return errs.New(errs.KindNotFound, "not found")
		}
		return errs.Database(err)
	}

	ok, err := s.verifyPassword(ctx, oldPassword, user.PasswordHash)
	if err != nil && !errors.Is(err, ErrMalformedHash) {
		return err
	}
	if !ok {
		return errs.WrongCredentials()
	}

	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return errs.Database(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordReset,
		ActorID:  userID,
		Resource: "user",
	})

	return nil
}

// Unlock clears an account's lock state on behalf of an operator.
func (s *Service) Unlock(ctx context.Context, actorID, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return errs.New(errs.KindNotFound, "not found")
		}
		return errs.Database(err)
	}

	if err := s.repo.UpdateLockState(ctx, user.ID, 0, false, nil); err != nil {
		return errs.Database(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserUnlocked,
		ActorID:  actorID,
		Resource: "user/" + userID,
		Metadata: map[string]any{audit.AttrReason: "manual_unlock"},
	})

	return nil
}

// GetByID retrieves a user for profile display.
func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, errs.New(errs.KindNotFound, "not found")
		}
		return nil, errs.Database(err)
	}
	return user, nil
}

// hashPassword runs Hash on the pool and records its duration.
func (s *Service) hashPassword(ctx context.Context, password string) (string, error) {
	var (
		hash    string
		hashErr error
	)
	start := s.now()
	if err := s.pool.Do(ctx, func() {
		hash, hashErr = s.hasher.Hash(password)
	}); err != nil {
		return "", err
	}
	s.recordHashDuration(ctx, start)
	return hash, hashErr
}

// verifyPassword runs Verify on the pool; same cost profile as hashing.
func (s *Service) verifyPassword(ctx context.Context, password, encodedHash string) (bool, error) {
	var (
		ok        bool
		verifyErr error
	)
	start := s.now()
	if err := s.pool.Do(ctx, func() {
		ok, verifyErr = s.hasher.Verify(password, encodedHash)
	}); err != nil {
		return false, err
	}
	s.recordHashDuration(ctx, start)
	return ok, verifyErr
}

func (s *Service) recordHashDuration(ctx context.Context, start time.Time) {
	if s.metrics != nil {
		s.metrics.HashDurationMilli.Record(ctx, float64(s.now().Sub(start).Milliseconds()))
	}
}

func (s *Service) countFailure(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.LoginFailures.Add(ctx, 1)
	}
}
