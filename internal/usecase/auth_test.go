package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

func TestSignupStoresHashedIdentityWithDefaultRole(t *testing.T) {
	h := newHarness(t)

	res := h.signup(t, "Laura Wilson", "  Laura@Example.com ", "pass1234word")

	if res.Identity.Role != domain.RoleUser {
		t.Fatalf("expected role user, got %s", res.Identity.Role)
	}
	if res.Identity.Email != "laura@example.com" {
		t.Fatalf("email not normalized: %s", res.Identity.Email)
	}
	stored := h.store.get(t, res.Identity.ID)
	if stored.PasswordHash == "pass1234word" || stored.PasswordHash == "" {
		t.Fatalf("password stored in plaintext: %q", stored.PasswordHash)
	}
	if stored.PasswordChangedAt != nil {
		t.Fatalf("fresh identity must not carry password_changed_at")
	}

	claims, err := h.tokens.Verify(res.Token.Value)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.SubjectID != res.Identity.ID {
		t.Fatalf("token subject %s, want %s", claims.SubjectID, res.Identity.ID)
	}

	if len(h.events.registered) != 1 || h.events.registered[0].UserID != res.Identity.ID {
		t.Fatalf("expected one registered event, got %+v", h.events.registered)
	}
}

func TestSignupValidation(t *testing.T) {
	cases := []struct {
		name  string
		input SignupInput
	}{
		{"missing name", SignupInput{Email: "a@example.com", Password: "pass1234word", ConfirmPassword: "pass1234word"}},
		{"missing email", SignupInput{Name: "A", Password: "pass1234word", ConfirmPassword: "pass1234word"}},
		{"invalid email", SignupInput{Name: "A", Email: "not-an-email", Password: "pass1234word", ConfirmPassword: "pass1234word"}},
		{"missing password", SignupInput{Name: "A", Email: "a@example.com"}},
		{"missing confirm", SignupInput{Name: "A", Email: "a@example.com", Password: "pass1234word"}},
		{"mismatch", SignupInput{Name: "A", Email: "a@example.com", Password: "pass1234word", ConfirmPassword: "pass1234wore"}},
		{"policy", SignupInput{Name: "A", Email: "a@example.com", Password: "short", ConfirmPassword: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.auth.Signup(context.Background(), tc.input)
			requireKind(t, err, domain.ErrValidation)
			if len(h.store.users) != 0 {
				t.Fatalf("nothing should be stored on validation failure")
			}
		})
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "Laura", "laura@example.com", "pass1234word")

	_, err := h.auth.Signup(context.Background(), SignupInput{
		Name:            "Other",
		Email:           "LAURA@example.com",
		Password:        "pass1234word",
		ConfirmPassword: "pass1234word",
	})
	requireKind(t, err, domain.ErrConflict)
}

func TestSignupHashFailureIsInternal(t *testing.T) {
	h := newHarness(t)
	h.auth.hasher = plainHasher{hashErr: errors.New("pool closed")}

	_, err := h.auth.Signup(context.Background(), SignupInput{
		Name: "A", Email: "a@example.com", Password: "pass1234word", ConfirmPassword: "pass1234word",
	})
	de := domain.AsError(err)
	if de == nil || de.Kind != domain.KindInternal || de.Operational() {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestSignin(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")

	t.Run("success", func(t *testing.T) {
		res, err := h.auth.Signin(context.Background(), SigninInput{Email: "Laura@example.com", Password: "pass1234word"})
		if err != nil {
			t.Fatalf("Signin returned error: %v", err)
		}
		if res.Identity.ID != registered.Identity.ID {
			t.Fatalf("signed in as %s, want %s", res.Identity.ID, registered.Identity.ID)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := h.auth.Signin(context.Background(), SigninInput{Email: "laura@example.com"})
		requireKind(t, err, domain.ErrValidation)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := h.auth.Signin(context.Background(), SigninInput{Email: "laura@example.com", Password: "nope12345"})
		requireKind(t, err, domain.ErrBadCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := h.auth.Signin(context.Background(), SigninInput{Email: "ghost@example.com", Password: "pass1234word"})
		requireKind(t, err, domain.ErrBadCredentials)
		if msg := domain.AsError(err).Message; msg != msgBadCredentials {
			t.Fatalf("unknown email must look like a wrong password, got %q", msg)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")

	identity, claims, err := h.auth.Authenticate(context.Background(), registered.Token.Value)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if identity.ID != registered.Identity.ID || claims.SubjectID != identity.ID {
		t.Fatalf("resolved wrong identity %+v", identity)
	}

	if _, _, err := h.auth.Authenticate(context.Background(), "  "); !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, _, err := h.auth.Authenticate(context.Background(), "not.a.jwt"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	tampered := registered.Token.Value[:len(registered.Token.Value)-2] + "xx"
	if _, _, err := h.auth.Authenticate(context.Background(), tampered); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token for tampered signature, got %v", err)
	}
}

func TestAuthenticateExpiryBoundary(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")

	h.clock.Advance(90*24*time.Hour - time.Second)
	if _, _, err := h.auth.Authenticate(context.Background(), registered.Token.Value); err != nil {
		t.Fatalf("token should still be valid just before expiry: %v", err)
	}

	h.clock.Advance(2 * time.Second)
	_, _, err := h.auth.Authenticate(context.Background(), registered.Token.Value)
	requireKind(t, err, domain.ErrExpiredToken)
}

func TestAuthenticateSubjectGone(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")

	if err := h.users.DeleteCurrentUser(context.Background(), registered.Identity, RequestMeta{}); err != nil {
		t.Fatalf("DeleteCurrentUser: %v", err)
	}

	_, _, err := h.auth.Authenticate(context.Background(), registered.Token.Value)
	requireKind(t, err, domain.ErrSubjectGone)
}

func TestAuthenticateRejectsTokensOlderThanPasswordChange(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")

	h.clock.Advance(time.Second)
	changed, err := h.password.UpdatePassword(context.Background(), registered.Identity, UpdatePasswordInput{
		CurrentPassword: "pass1234word",
		Password:        "newpass5678",
		ConfirmPassword: "newpass5678",
	})
	if err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	_, _, err = h.auth.Authenticate(context.Background(), registered.Token.Value)
	requireKind(t, err, domain.ErrPasswordChanged)

	// The replacement token is issued at the same instant as the change.
	if _, _, err := h.auth.Authenticate(context.Background(), changed.Token.Value); err != nil {
		t.Fatalf("token issued with the change must stay valid: %v", err)
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry an identity")
	}
	identity := &domain.Identity{ID: "u1", Role: domain.RoleGuide}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), identity))
	if !ok || got != identity {
		t.Fatalf("identity not recovered from context")
	}
	if _, ok := IdentityFromContext(WithIdentity(context.Background(), nil)); ok {
		t.Fatal("nil identity must not be reported as present")
	}
}

func TestRequestMetaSkipsBlankFields(t *testing.T) {
	meta := RequestMeta{IP: " 203.0.113.9 ", UserAgent: "  "}.metadata()
	if meta["ip"] != "203.0.113.9" {
		t.Fatalf("unexpected ip %v", meta["ip"])
	}
	if _, ok := meta["user_agent"]; ok {
		t.Fatal("blank user agent should be omitted")
	}
	if strings.Contains(strings.Join(keys(meta), ","), "request_id") {
		t.Fatal("blank request id should be omitted")
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type countingHasher struct {
	plainHasher
	mu       sync.Mutex
	hashes   int
	verifies int
}

func (c *countingHasher) Hash(ctx context.Context, password string) (string, error) {
	c.mu.Lock()
	c.hashes++
	c.mu.Unlock()
	return c.plainHasher.Hash(ctx, password)
}

func (c *countingHasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	c.mu.Lock()
	c.verifies++
	c.mu.Unlock()
	return c.plainHasher.Verify(ctx, password, encoded)
}

func TestSigninUnknownEmailSpendsHashingWork(t *testing.T) {
	hasher := &countingHasher{}
	auth := NewAuthService(newMemoryStore(), hasher, newHarness(t).tokens, acceptPolicy{}, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := auth.Signin(context.Background(), SigninInput{Email: "ghost@example.com", Password: decoyPassword})
		requireKind(t, err, domain.ErrBadCredentials)
	}

	if hasher.verifies != 3 {
		t.Fatalf("expected one verify per unknown-email signin, got %d", hasher.verifies)
	}
	if hasher.hashes != 1 {
		t.Fatalf("decoy hash must be computed once, got %d", hasher.hashes)
	}
}
