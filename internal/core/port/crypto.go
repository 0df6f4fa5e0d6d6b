package port

import (
	"context"
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, ctx domain.PasswordContext) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password string, encoded string) (bool, error)
}

// TokenIssuer signs and verifies stateless session tokens.
type TokenIssuer interface {
	Issue(subjectID string, issuedAt time.Time) (domain.IssuedToken, error)
	Verify(token string) (domain.SessionClaims, error)
}

// ResetTokenManager produces single-use reset tokens and derives their lookup hash.
type ResetTokenManager interface {
	Generate() (plaintext string, hash string, expiresAt time.Time, err error)
	Hash(plaintext string) string
}
