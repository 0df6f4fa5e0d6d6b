package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, clock *fakeClock, ttl time.Duration) *SessionTokenIssuer {
	t.Helper()
	issuer, err := NewSessionTokenIssuer(SessionTokenOptions{Secret: testSecret, TTL: ttl, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewSessionTokenIssuer returned error: %v", err)
	}
	return issuer
}

func TestSessionTokenRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.UTC)}
	issuer := newTestIssuer(t, clock, time.Hour)

	token, err := issuer.Issue("user-123", clock.now)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !token.ExpiresAt.Equal(clock.now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", token.ExpiresAt)
	}

	claims, err := issuer.Verify(token.Value)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.SubjectID != "user-123" {
		t.Fatalf("unexpected subject %q", claims.SubjectID)
	}
	if !claims.IssuedAt.Equal(clock.now) {
		t.Fatalf("issued at lost precision: got %v want %v", claims.IssuedAt, clock.now)
	}
}

func TestSessionTokenExpiryBoundary(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	issuer := newTestIssuer(t, clock, 15*time.Minute)

	token, err := issuer.Issue("user-1", start)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	clock.now = start.Add(15*time.Minute - time.Microsecond)
	if _, err := issuer.Verify(token.Value); err != nil {
		t.Fatalf("token must be valid just before expiry, got %v", err)
	}

	clock.now = start.Add(15 * time.Minute)
	if _, err := issuer.Verify(token.Value); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at the horizon, got %v", err)
	}
}

func TestSessionTokenRejectsTampering(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC()}
	issuer := newTestIssuer(t, clock, time.Hour)

	token, err := issuer.Issue("user-1", clock.now)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	other, err := NewSessionTokenIssuer(SessionTokenOptions{Secret: []byte(strings.Repeat("x", 32)), Now: clock.Now})
	if err != nil {
		t.Fatalf("NewSessionTokenIssuer returned error: %v", err)
	}
	if _, err := other.Verify(token.Value); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error for rotated secret, got %v", err)
	}

	parts := strings.Split(token.Value, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := issuer.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected signature error for altered signature, got %v", err)
	}

	for _, raw := range []string{"", "garbage", "a.b"} {
		if _, err := issuer.Verify(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("Verify(%q): expected ErrTokenMalformed, got %v", raw, err)
		}
	}
}

func TestSessionTokenRejectsForeignAlgorithms(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC()}
	issuer := newTestIssuer(t, clock, time.Hour)

	claims := SessionClaims{
		UserID: "user-1",
		Kind:   sessionTokenKind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    defaultTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(clock.now),
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := issuer.Verify(unsigned); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestSessionTokenIssuerRequiresLongSecret(t *testing.T) {
	if _, err := NewSessionTokenIssuer(SessionTokenOptions{Secret: []byte("short")}); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestPackageSetsNanosecondTimePrecision(t *testing.T) {
	if jwt.TimePrecision != time.Nanosecond {
		t.Fatalf("jwt.TimePrecision = %v, want %v", jwt.TimePrecision, time.Nanosecond)
	}
}
