// Package security holds password hashing, session token and reset token
// primitives.
//
// Importing it sets the process-wide jwt.TimePrecision to nanoseconds so
// session iat claims keep sub-second digits. Every other golang-jwt user in the
// binary encodes and decodes NumericDate values at that precision too.
package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
)

var (
	ErrTokenSignature = errors.New("jwt: invalid signature")
	ErrTokenExpired   = errors.New("jwt: token expired")
	ErrTokenMalformed = errors.New("jwt: malformed token")
)

const (
	minSecretLength    = 32
	defaultSessionTTL  = 90 * 24 * time.Hour
	defaultTokenIssuer = "natours-iam"
	sessionTokenKind   = "session"
)

// init changes golang-jwt global state; see the package comment.
// Password changes are compared against iat at microsecond precision
// (timestamptz). Claims are encoded with nanosecond digits and rounded back to
// microseconds on decode to absorb float64 error.
func init() {
	jwt.TimePrecision = time.Nanosecond
}

// SessionClaims is the JWT body of a session token.
type SessionClaims struct {
	UserID string `json:"uid"`
	Kind   string `json:"typ"`
	jwt.RegisteredClaims
}

// SessionTokenOptions configures a SessionTokenIssuer.
type SessionTokenOptions struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// SessionTokenIssuer signs and verifies HS256 session tokens with a single
// process-wide secret. Rotating the secret invalidates every issued token.
type SessionTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewSessionTokenIssuer validates opts and returns an issuer. Tokens carry
// iat with sub-second digits through the package-level jwt.TimePrecision
// setting.
func NewSessionTokenIssuer(opts SessionTokenOptions) (*SessionTokenIssuer, error) {
	if len(opts.Secret) < minSecretLength {
		return nil, fmt.Errorf("jwt: secret must be at least %d bytes", minSecretLength)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultTokenIssuer
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(opts.Secret))
	copy(secret, opts.Secret)

	return &SessionTokenIssuer{secret: secret, ttl: ttl, issuer: issuer, now: now}, nil
}

// TTL returns the configured token lifetime.
func (s *SessionTokenIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subjectID issued at issuedAt.
func (s *SessionTokenIssuer) Issue(subjectID string, issuedAt time.Time) (domain.IssuedToken, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.IssuedToken{}, fmt.Errorf("jwt: subject id is required")
	}
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	issuedAt = issuedAt.UTC().Truncate(time.Microsecond)
	expiresAt := issuedAt.Add(s.ttl)

	claims := SessionClaims{
		UserID: subjectID,
		Kind:   sessionTokenKind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return domain.IssuedToken{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, expiry and shape of token.
func (s *SessionTokenIssuer) Verify(token string) (domain.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SessionClaims{}, ErrTokenMalformed
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.SessionClaims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return domain.SessionClaims{}, fmt.Errorf("%w: %v", ErrTokenSignature, err)
		default:
			return domain.SessionClaims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	if !parsed.Valid || claims.Kind != sessionTokenKind || claims.UserID == "" || claims.Subject != claims.UserID || claims.IssuedAt == nil {
		return domain.SessionClaims{}, ErrTokenMalformed
	}

	return domain.SessionClaims{
		SubjectID: claims.UserID,
		IssuedAt:  claims.IssuedAt.Time.Round(time.Microsecond).UTC(),
		ExpiresAt: claims.ExpiresAt.Time.Round(time.Microsecond).UTC(),
	}, nil
}

var _ port.TokenIssuer = (*SessionTokenIssuer)(nil)
