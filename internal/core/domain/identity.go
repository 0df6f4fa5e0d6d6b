package domain

import (
	"strings"
	"time"
)

// Identity mirrors the persisted representation in the users table.
type Identity struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Photo             *string    `json:"photo,omitempty"`
	Role              Role       `json:"role"`
	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`
	ResetTokenHash    *string    `json:"-"`
	ResetTokenExpiry  *time.Time `json:"-"`
	Active            bool       `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// PasswordChangedAfter reports whether the password was changed strictly after
// the given token issue time.
func (i *Identity) PasswordChangedAfter(issuedAt time.Time) bool {
	if i == nil || i.PasswordChangedAt == nil {
		return false
	}
	return i.PasswordChangedAt.After(issuedAt)
}

// HasPendingReset reports whether a reset token is stored and still valid at now.
func (i *Identity) HasPendingReset(now time.Time) bool {
	if i == nil || i.ResetTokenHash == nil || i.ResetTokenExpiry == nil {
		return false
	}
	return i.ResetTokenExpiry.After(now)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IdentityPatch lists the columns UpdateFields may write. Nil fields are left
// untouched.
type IdentityPatch struct {
	Name              *string
	Email             *string
	Photo             *string
	PasswordHash      *string
	PasswordChangedAt *time.Time
	ResetTokenHash    *string
	ResetTokenExpiry  *time.Time
	ClearResetToken   bool
	Active            *bool

	// IfPasswordHash makes the write conditional on the stored hash still
	// matching. It is a precondition, not a column write.
	IfPasswordHash *string
}

// Empty reports whether the patch carries no changes.
func (p IdentityPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Photo == nil && p.PasswordHash == nil &&
		p.PasswordChangedAt == nil && p.ResetTokenHash == nil && p.ResetTokenExpiry == nil &&
		!p.ClearResetToken && p.Active == nil
}

// Validate enforces that reset hash and expiry travel together.
func (p IdentityPatch) Validate() error {
	if (p.ResetTokenHash == nil) != (p.ResetTokenExpiry == nil) {
		return ErrResetPairIncomplete
	}
	if p.ClearResetToken && p.ResetTokenHash != nil {
		return ErrResetPairIncomplete
	}
	return nil
}

// NewIdentity holds the fields required to create an identity.
type NewIdentity struct {
	ID           string
	Name         string
	Email        string
	Photo        *string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// ListFilter paginates identity listings.
type ListFilter struct {
	Limit  int
	Offset int
}

// PasswordContext carries user inputs the password policy should penalize.
type PasswordContext struct {
	Name  string
	Email string
}
