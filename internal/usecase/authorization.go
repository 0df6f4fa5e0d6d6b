package usecase

import "github.com/SwagatoSarowar/Natours/internal/core/domain"

const msgForbidden = "You do not have permission to perform this action"

// AuthorizationGate admits identities whose role belongs to a fixed set.
type AuthorizationGate struct {
	allowed domain.RoleSet
}

// NewAuthorizationGate builds a gate for the given roles. Unknown roles are ignored.
func NewAuthorizationGate(roles ...domain.Role) *AuthorizationGate {
	return &AuthorizationGate{allowed: domain.NewRoleSet(roles...)}
}

// Allowed returns the admitted role set.
func (g *AuthorizationGate) Allowed() domain.RoleSet {
	return g.allowed
}

// Check fails with Forbidden unless identity holds an admitted role.
func (g *AuthorizationGate) Check(identity *domain.Identity) error {
	if identity == nil {
		return domain.Unauthenticated(domain.ReasonMissingToken, msgNotLoggedIn)
	}
	if !g.allowed.Contains(identity.Role) {
		return domain.Forbidden(msgForbidden)
	}
	return nil
}
