package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

// CookieOptions controls the optional session cookie.
type CookieOptions struct {
	Enabled bool
	Secure  bool
}

// setSessionCookie mirrors the issued token into an httpOnly cookie that
// expires with the token.
func setSessionCookie(c *gin.Context, opts CookieOptions, result usecase.AuthResult) {
	if !opts.Enabled {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token.Value,
		Path:     "/",
		Expires:  result.Token.ExpiresAt,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
