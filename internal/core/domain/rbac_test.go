package domain

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, role := range Roles() {
		got, err := ParseRole(string(role))
		if err != nil || got != role {
			t.Fatalf("ParseRole(%q) = %q, %v", role, got, err)
		}
	}

	if _, err := ParseRole("superuser"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRoleSetIgnoresInvalidRoles(t *testing.T) {
	set := NewRoleSet(RoleAdmin, Role("root"), RoleLeadGuide)

	if set.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", set.Len())
	}
	if set.Contains(Role("root")) {
		t.Fatalf("invalid role must not be a member")
	}
	if got := set.String(); got != "admin,lead-guide" {
		t.Fatalf("unexpected string form %q", got)
	}
}
