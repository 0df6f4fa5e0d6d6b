package domain

import (
	"sort"
	"strings"
)

// Role is the coarse-grained access level of an identity.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// DefaultRole is assigned to every new identity.
const DefaultRole = RoleUser

// Roles lists every valid role from lowest to highest privilege.
func Roles() []Role {
	return []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}
}

// Valid reports whether the role belongs to the enumerated set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts stored text into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(raw))
	if !role.Valid() {
		return "", ErrUnknownRole
	}
	return role, nil
}

// RoleSet is an immutable set of permitted roles.
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a set from the given roles. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	members := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		if role.Valid() {
			members[role] = struct{}{}
		}
	}
	return RoleSet{members: members}
}

// Contains reports whether role is permitted.
func (s RoleSet) Contains(role Role) bool {
	_, ok := s.members[role]
	return ok
}

// Len returns the number of permitted roles.
func (s RoleSet) Len() int {
	return len(s.members)
}

// String renders the set in a stable order for logs.
func (s RoleSet) String() string {
	names := make([]string, 0, len(s.members))
	for role := range s.members {
		names = append(names, string(role))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
