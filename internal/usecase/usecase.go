package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
)

var fieldValidator = validator.New()

// RequestMeta carries caller details attached to domain events.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

func (m RequestMeta) metadata() map[string]any {
	out := make(map[string]any, 3)
	if ip := strings.TrimSpace(m.IP); ip != "" {
		out["ip"] = ip
	}
	if ua := strings.TrimSpace(m.UserAgent); ua != "" {
		out["user_agent"] = ua
	}
	if id := strings.TrimSpace(m.RequestID); id != "" {
		out["request_id"] = id
	}
	return out
}

// AuthResult is returned by every flow that issues a session token.
type AuthResult struct {
	Token    domain.IssuedToken
	Identity *domain.Identity
}

type identityContextKey struct{}

// WithIdentity attaches the authenticated identity to ctx.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*domain.Identity)
	return identity, ok && identity != nil
}

func systemClock() time.Time {
	return time.Now()
}

// stamp normalizes clock readings to the storage precision so that
// password_changed_at and the iat of tokens issued alongside it compare equal.
func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}

func normalizeEmail(raw string) (string, error) {
	email := domain.NormalizeEmail(raw)
	if email == "" {
		return "", domain.Validation("Please provide your email address")
	}
	if err := fieldValidator.Var(email, "email"); err != nil {
		return "", domain.Validation("Please provide a valid email address")
	}
	return email, nil
}

func checkNewPassword(policy port.PasswordPolicyValidator, password, confirm string, pctx domain.PasswordContext) error {
	if password == "" {
		return domain.Validation("Please provide a password")
	}
	if confirm == "" {
		return domain.Validation("Please confirm your password")
	}
	if password != confirm {
		return domain.Validation("Passwords are not the same")
	}
	if policy != nil {
		if err := policy.Validate(password, pctx); err != nil {
			return domain.Validation(err.Error())
		}
	}
	return nil
}
