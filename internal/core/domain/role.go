package domain

import "strings"

// Role is the single role assigned to an account.
type Role string

const (
	RoleGuest   Role = "GUEST"
	RoleMember  Role = "MEMBER"
	RoleCreator Role = "CREATOR"
	RoleAdmin   Role = "ADMIN"
)

// DefaultRole is assigned at registration.
const DefaultRole = RoleMember

// IsValid reports whether r belongs to the closed role set.
func (r Role) IsValid() bool {
	switch r {
	case RoleGuest, RoleMember, RoleCreator, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// AllRoles returns the role set from least to most privileged.
func AllRoles() []Role {
	return []Role{RoleGuest, RoleMember, RoleCreator, RoleAdmin}
}

// ParseRole converts a caller-supplied string into a Role. Matching is
// case-insensitive; anything outside the closed set is ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
