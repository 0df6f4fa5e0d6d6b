package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/samber/oops"

	"github.com/SwagatoSarowar/Natours/internal/core/port"
)

const (
	resetTokenBytes      = 32
	defaultResetTokenTTL = 10 * time.Minute
)

// GenerateSecureToken returns a base64 URL-safe random string using the specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("RANDOM_SOURCE_FAILED").Wrap(err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// ResetTokenManager issues password reset tokens valid for a fixed window.
type ResetTokenManager struct {
	ttl time.Duration
	now func() time.Time
}

// NewResetTokenManager returns a manager with the given validity window.
func NewResetTokenManager(ttl time.Duration, now func() time.Time) *ResetTokenManager {
	if ttl <= 0 {
		ttl = defaultResetTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ResetTokenManager{ttl: ttl, now: now}
}

// TTL returns the validity window.
func (m *ResetTokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate draws 256 bits of randomness and returns the plaintext token, its
// storage hash and the absolute expiry.
func (m *ResetTokenManager) Generate() (string, string, time.Time, error) {
	plaintext, err := GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return "", "", time.Time{}, oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	expiresAt := m.now().UTC().Truncate(time.Microsecond).Add(m.ttl)
	return plaintext, HashToken(plaintext), expiresAt, nil
}

// Hash derives the lookup hash for a submitted plaintext token.
func (m *ResetTokenManager) Hash(plaintext string) string {
	return HashToken(plaintext)
}

var _ port.ResetTokenManager = (*ResetTokenManager)(nil)
