package port

import (
	"context"
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

// CredentialStore exposes persistence behavior for identities. Lookups only
// return active identities.
type CredentialStore interface {
	Create(ctx context.Context, identity domain.NewIdentity) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	UpdateFields(ctx context.Context, id string, patch domain.IdentityPatch) (*domain.Identity, error)
	// FindByResetHash returns the identity holding hash only while its expiry is after now.
	FindByResetHash(ctx context.Context, hash string, now time.Time) (*domain.Identity, error)
	// ConsumeResetToken writes the new password hash and clears the reset pair in a
	// single statement, provided hash is still stored and unexpired at now.
	ConsumeResetToken(ctx context.Context, hash string, now time.Time, passwordHash string) (*domain.Identity, error)
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Identity, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
