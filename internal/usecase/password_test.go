package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

func TestUpdatePassword(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")
	h.clock.Advance(time.Minute)

	t.Run("wrong current password", func(t *testing.T) {
		_, err := h.password.UpdatePassword(context.Background(), registered.Identity, UpdatePasswordInput{
			CurrentPassword: "guess12345",
			Password:        "newpass5678",
			ConfirmPassword: "newpass5678",
		})
		requireKind(t, err, domain.ErrBadCredentials)
	})

	t.Run("missing current password", func(t *testing.T) {
		_, err := h.password.UpdatePassword(context.Background(), registered.Identity, UpdatePasswordInput{
			Password:        "newpass5678",
			ConfirmPassword: "newpass5678",
		})
		requireKind(t, err, domain.ErrValidation)
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		_, err := h.password.UpdatePassword(context.Background(), registered.Identity, UpdatePasswordInput{
			CurrentPassword: "pass1234word",
			Password:        "newpass5678",
			ConfirmPassword: "newpass5679",
		})
		requireKind(t, err, domain.ErrValidation)
	})

	t.Run("no identity", func(t *testing.T) {
		_, err := h.password.UpdatePassword(context.Background(), nil, UpdatePasswordInput{})
		requireKind(t, err, domain.ErrMissingToken)
	})

	if got := h.store.get(t, registered.Identity.ID); got.PasswordChangedAt != nil {
		t.Fatalf("failed attempts must not touch password_changed_at")
	}

	res, err := h.password.UpdatePassword(context.Background(), registered.Identity, UpdatePasswordInput{
		CurrentPassword: "pass1234word",
		Password:        "newpass5678",
		ConfirmPassword: "newpass5678",
	})
	if err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}

	stored := h.store.get(t, registered.Identity.ID)
	if stored.PasswordChangedAt == nil || !stored.PasswordChangedAt.Equal(h.clock.Now()) {
		t.Fatalf("password_changed_at = %v, want %v", stored.PasswordChangedAt, h.clock.Now())
	}
	if !res.Token.ExpiresAt.After(h.clock.Now()) {
		t.Fatalf("fresh token already expired")
	}

	if _, err := h.auth.Signin(context.Background(), SigninInput{Email: "laura@example.com", Password: "pass1234word"}); err == nil {
		t.Fatal("old password must stop working")
	}
	if _, err := h.auth.Signin(context.Background(), SigninInput{Email: "laura@example.com", Password: "newpass5678"}); err != nil {
		t.Fatalf("new password must work: %v", err)
	}

	if len(h.events.changed) != 1 || h.events.changed[0].Method != passwordMethodUpdate {
		t.Fatalf("expected one update event, got %+v", h.events.changed)
	}
}

func TestUpdatePasswordLosesToConcurrentChange(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")
	stale := *registered.Identity
	h.clock.Advance(time.Minute)

	if _, err := h.password.UpdatePassword(context.Background(), registered.Identity, UpdatePasswordInput{
		CurrentPassword: "pass1234word",
		Password:        "firstwins123",
		ConfirmPassword: "firstwins123",
	}); err != nil {
		t.Fatalf("first UpdatePassword: %v", err)
	}

	_, err := h.password.UpdatePassword(context.Background(), &stale, UpdatePasswordInput{
		CurrentPassword: "pass1234word",
		Password:        "secondloses1",
		ConfirmPassword: "secondloses1",
	})
	requireKind(t, err, domain.ErrPasswordChanged)

	if got := h.store.get(t, registered.Identity.ID).PasswordHash; got != "plain$firstwins123" {
		t.Fatalf("stored hash = %q, the first change must survive", got)
	}
	if len(h.events.changed) != 1 {
		t.Fatalf("expected one password changed event, got %d", len(h.events.changed))
	}
}

func TestUpdatePasswordSubjectGone(t *testing.T) {
	h := newHarness(t)
	registered := h.signup(t, "Laura", "laura@example.com", "pass1234word")
	identity := *registered.Identity

	if err := h.users.DeleteCurrentUser(context.Background(), registered.Identity, RequestMeta{}); err != nil {
		t.Fatalf("DeleteCurrentUser: %v", err)
	}

	_, err := h.password.UpdatePassword(context.Background(), &identity, UpdatePasswordInput{
		CurrentPassword: "pass1234word",
		Password:        "newpass5678",
		ConfirmPassword: "newpass5678",
	})
	requireKind(t, err, domain.ErrSubjectGone)
}
