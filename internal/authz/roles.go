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

import "fmt"

// Role is the closed set of marketplace roles. Admin satisfies every
// requirement; moderator additionally satisfies moderator checks; vendor and
// buyer satisfy only themselves.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleVendor    Role = "vendor"
	RoleBuyer     Role = "buyer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleModerator, RoleVendor, RoleBuyer}

// ParseRole converts a stored string into a Role, rejecting anything outside
// the closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleVendor, RoleBuyer:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role: %q", s)
}

// Valid reports whether r is one of the closed enumeration.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// Satisfies reports whether an identity holding r is admitted by a check
// requiring required. Admin bypasses every check; all other roles admit
// only an exact match.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// Moderates reports whether r may act as a moderator. This is the only
// modeled moderator-and-below check: moderator and admin qualify.
func (r Role) Moderates() bool {
	return r == RoleModerator || r == RoleAdmin
}
