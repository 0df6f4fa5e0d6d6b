package usecase

import (
	"errors"
	"testing"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

func TestAuthorizationGateAdminOrLeadGuide(t *testing.T) {
	gate := NewAuthorizationGate(domain.RoleAdmin, domain.RoleLeadGuide)

	cases := []struct {
		role    domain.Role
		allowed bool
	}{
		{domain.RoleAdmin, true},
		{domain.RoleLeadGuide, true},
		{domain.RoleGuide, false},
		{domain.RoleUser, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			err := gate.Check(&domain.Identity{ID: "id", Role: tc.role})
			if tc.allowed && err != nil {
				t.Fatalf("expected %s to pass, got %v", tc.role, err)
			}
			if !tc.allowed && !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected forbidden for %s, got %v", tc.role, err)
			}
		})
	}
}

func TestAuthorizationGateWithoutIdentity(t *testing.T) {
	err := NewAuthorizationGate(domain.RoleUser).Check(nil)
	if !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestAuthorizationGateIgnoresUnknownRoles(t *testing.T) {
	gate := NewAuthorizationGate(domain.Role("root"), domain.RoleGuide)
	if gate.Allowed().Len() != 1 {
		t.Fatalf("expected only guide in set, got %s", gate.Allowed())
	}
	if err := gate.Check(&domain.Identity{Role: domain.Role("root")}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unknown role must be forbidden, got %v", err)
	}
}
