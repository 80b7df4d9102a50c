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

// Package token issues and validates the signed identity tokens that carry
// a login across requests. Tokens are compact JWS strings (header, payload,
// signature) signed with HMAC-SHA256 over a shared secret.
package token

import (
	"time"

	"github.com/agoramarket/agora/internal/authz"
	"github.com/agoramarket/agora/internal/errs"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity facts embedded in a token. Immutable once issued;
// validity is purely a function of the signature and the expiry.
type Claims struct {
	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	Role     authz.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity converts validated claims into the acting identity consumed by
// the authorization guard.
func (c *Claims) Identity() *authz.Identity {
	return &authz.Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
	}
}

// Service signs and validates identity tokens.
type Service struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewService creates a token service with the shared signing secret and
// token lifetime.
func NewService(secret string, lifetime time.Duration) *Service {
	return &Service{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue signs a token for the given identity, valid from now until
// now+lifetime.
func (s *Service) Issue(userID, username string, role authz.Role) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errs.Wrap(errs.KindTokenCreation, "failed to create authentication token", err)
	}
	return signed, nil
}

// Validate checks the signature, then the expiry, and only then exposes the
// claims. Forged signatures, malformed structure and expired tokens all
// collapse into the same InvalidToken error so a caller learns nothing
// about which check failed. Expiry is inclusive-exclusive: a token with
// exp == now is already expired.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, errs.InvalidToken()
	}

	if !claims.Role.Valid() {
		return nil, errs.InvalidToken()
	}

	return claims, nil
}
