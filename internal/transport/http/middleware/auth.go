package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

const (
	// SessionCookie carries the session token when cookie transport is enabled.
	SessionCookie = "jwt"

	identityKey = "identity"
	claimsKey   = "session_claims"
)

// Authenticator resolves a session token to a live identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, domain.SessionClaims, error)
}

// RejectionRecorder observes gate failures.
type RejectionRecorder interface {
	GateRejection(err error)
}

// AuthOptions tunes RequireAuth.
type AuthOptions struct {
	// AllowCookie accepts the SessionCookie when no Authorization header is sent.
	AllowCookie bool
	Recorder    RejectionRecorder
}

// RequireAuth rejects requests without a valid session and attaches the
// resolved identity to both the gin and the request context.
func RequireAuth(auth Authenticator, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && opts.AllowCookie && c.GetHeader("Authorization") == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				token = cookie
			}
		}

		identity, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if opts.Recorder != nil {
				opts.Recorder.GateRejection(err)
			}
			AbortWithError(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(usecase.WithIdentity(c.Request.Context(), identity))

		c.Next()
	}
}

// RestrictTo admits only identities whose role is in roles. It must run after
// RequireAuth.
func RestrictTo(recorder RejectionRecorder, roles ...domain.Role) gin.HandlerFunc {
	gate := usecase.NewAuthorizationGate(roles...)
	return func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		if err := gate.Check(identity); err != nil {
			if recorder != nil {
				recorder.GateRejection(err)
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity attached by RequireAuth.
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*domain.Identity)
	return identity, ok && identity != nil
}

// CurrentClaims returns the verified token claims attached by RequireAuth.
func CurrentClaims(c *gin.Context) (domain.SessionClaims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return domain.SessionClaims{}, false
	}
	claims, ok := value.(domain.SessionClaims)
	return claims, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
