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
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/agoramarket/agora/internal/errs"
	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash marks a stored hash that cannot be parsed. Callers treat
// it as verification failure; it indicates data corruption, not a user
// mistake, and is logged as an internal error.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher hashes and verifies passwords with Argon2id. The encoded form
// embeds algorithm identity, parameters, salt and digest, so verification
// needs no external state.
type Hasher struct {
	memory            uint32
	iterations        uint32
	parallelism       uint8
	saltLength        uint32
	keyLength         uint32
	minPasswordLength int
}

// NewHasher creates a password hasher with explicit Argon2id cost
// parameters and the minimum accepted password length.
func NewHasher(memory, iterations uint32, parallelism uint8, saltLength, keyLength uint32, minPasswordLength int) *Hasher {
	return &Hasher{
		memory:            memory,
		iterations:        iterations,
		parallelism:       parallelism,
		saltLength:        saltLength,
		keyLength:         keyLength,
		minPasswordLength: minPasswordLength,
	}
}

// DefaultHasher returns a hasher with the production cost profile:
// 64 MiB memory, 3 iterations, 1 lane.
func DefaultHasher(minPasswordLength int) *Hasher {
	return NewHasher(64*1024, 3, 1, 16, 32, minPasswordLength)
}

// Hash hashes a password with a fresh random salt. Deliberately slow;
// callers dispatch it through the hash pool, never on the request path.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < h.minPasswordLength {
		return "", errs.Newf(errs.KindValidation,
			"password must be at least %d characters long", h.minPasswordLength)
	}

	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errs.Wrap(errs.KindHashPassword, "failed to generate salt", err)
	}

	digest := argon2.IDKey(
		[]byte(password),
		salt,
		h.iterations,
		h.memory,
		h.parallelism,
		h.keyLength,
	)

	// PHC string: $argon2id$v=19$m=memory,t=iterations,p=parallelism$salt$digest
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.iterations,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// Verify recomputes the digest with the parameters embedded in encodedHash
// and compares in constant time. A hash that cannot be parsed returns
// (false, ErrMalformedHash) rather than panicking.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	memory, iterations, parallelism, salt, expected, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}

	actual := argon2.IDKey(
		[]byte(password),
		salt,
		iterations,
		memory,
		parallelism,
		uint32(len(expected)),
	)

	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func parseHash(encoded string) (memory, iterations uint32, parallelism uint8, salt, digest []byte, err error) {
	// Expected form: $argon2id$v=19$m=65536,t=3,p=1$salt$digest
	sections := strings.Split(encoded, "$")
	if len(sections) != 6 || sections[0] != "" || sections[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: expected 6 sections, got %d", ErrMalformedHash, len(sections))
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: bad version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: bad parameters: %v", ErrMalformedHash, err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: bad salt: %v", ErrMalformedHash, err)
	}

	digest, err = base64.RawStdEncoding.DecodeString(sections[5])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: bad digest: %v", ErrMalformedHash, err)
	}

	return memory, iterations, parallelism, salt, digest, nil
}
