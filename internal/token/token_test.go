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

package token

import (
	"strings"
	"testing"
	"time"

	"github.com/agoramarket/agora/internal/authz"
	"github.com/agoramarket/agora/internal/errs"
)

const testSecret = "test-secret-at-least-32-bytes-long!"

func newTestService(lifetime time.Duration, now time.Time) *Service {
	s := NewService(testSecret, lifetime)
	s.now = func() time.Time { return now }
	return s
}

func TestService_IssueAndValidate(t *testing.T) {
	issued := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(30*24*time.Hour, issued)

	tokenString, err := s.Issue("u1", "alice", authz.RoleBuyer)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if parts := strings.Split(tokenString, "."); len(parts) != 3 {
		t.Fatalf("expected compact JWS with 3 parts, got %d", len(parts))
	}

	claims, err := s.Validate(tokenString)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" || claims.Role != authz.RoleBuyer {
		t.Errorf("unexpected claims: %+v", claims)
	}

	ident := claims.Identity()
	if ident.UserID != "u1" || ident.Role != authz.RoleBuyer {
		t.Errorf("unexpected identity: %+v", ident)
	}
}

func TestService_Validate_Expiry(t *testing.T) {
	issued := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	lifetime := time.Hour

	cases := []struct {
		name  string
		at    time.Time
		valid bool
	}{
		{"immediately after issue", issued.Add(time.Second), true},
		{"just before expiry", issued.Add(lifetime - time.Second), true},
		{"exactly at expiry", issued.Add(lifetime), false},
		{"after expiry", issued.Add(lifetime + time.Second), false},
	}

	issuer := newTestService(lifetime, issued)
	tokenString, err := issuer.Issue("u1", "alice", authz.RoleBuyer)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			validator := newTestService(lifetime, tc.at)
			_, err := validator.Validate(tokenString)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.valid && !errs.IsKind(err, errs.KindInvalidToken) {
				t.Errorf("expected invalid-token, got %v", err)
			}
		})
	}
}

func TestService_Validate_WrongSecret(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestService(time.Hour, now)

	tokenString, err := issuer.Issue("u1", "alice", authz.RoleBuyer)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other := NewService("a-completely-different-secret-value", time.Hour)
	other.now = func() time.Time { return now }

	if _, err := other.Validate(tokenString); !errs.IsKind(err, errs.KindInvalidToken) {
		t.Errorf("expected invalid-token for wrong secret, got %v", err)
	}
}

func TestService_Validate_Tampered(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(time.Hour, now)

	tokenString, err := s.Issue("u1", "alice", authz.RoleBuyer)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Flip the payload; the signature no longer matches.
	parts := strings.Split(tokenString, ".")
	tampered := parts[0] + "." + "eyJyb2xlIjoiYWRtaW4ifQ" + "." + parts[2]

	if _, err := s.Validate(tampered); !errs.IsKind(err, errs.KindInvalidToken) {
		t.Errorf("expected invalid-token for tampered payload, got %v", err)
	}
}

func TestService_Validate_Garbage(t *testing.T) {
	s := newTestService(time.Hour, time.Now())

	for _, tokenString := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := s.Validate(tokenString); !errs.IsKind(err, errs.KindInvalidToken) {
			t.Errorf("token %q: expected invalid-token, got %v", tokenString, err)
		}
	}
}

func TestService_Validate_InvalidRole(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(time.Hour, now)

	tokenString, err := s.Issue("u1", "alice", authz.Role("superuser"))
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// A well-signed token with a role outside the closed set is still
	// rejected; the role set is part of the trust boundary.
	if _, err := s.Validate(tokenString); !errs.IsKind(err, errs.KindInvalidToken) {
		t.Errorf("expected invalid-token for unknown role, got %v", err)
	}
}
