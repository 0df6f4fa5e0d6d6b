package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/infra/telemetry"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

// AuthHandler exposes signup and signin.
type AuthHandler struct {
	auth    *usecase.AuthService
	metrics *telemetry.AuthMetrics
	cookie  CookieOptions
	logger  *zap.Logger
}

// NewAuthHandler constructs AuthHandler. metrics may be nil.
func NewAuthHandler(auth *usecase.AuthService, metrics *telemetry.AuthMetrics, cookie CookieOptions, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, metrics: metrics, cookie: cookie, logger: log}
}

// Signup godoc
// @Summary Create an account
// @Description Registers a user with the default role and returns a session token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup payload"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/users/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), usecase.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Photo:           req.Photo,
		Meta:            middleware.RequestMeta(c),
	})
	h.metrics.Signup(err)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	setSessionCookie(c, h.cookie, result)
	c.JSON(http.StatusCreated, AuthResponse{
		Status: statusSuccess,
		Token:  result.Token.Value,
		Data:   UserData{User: newUserView(result.Identity)},
	})
}

// Signin godoc
// @Summary Sign in
// @Description Exchanges email and password for a session token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SigninRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/users/signin [post]
func (h *AuthHandler) Signin(c *gin.Context) {
	var req SigninRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.auth.Signin(c.Request.Context(), usecase.SigninInput{
		Email:    req.Email,
		Password: req.Password,
		Meta:     middleware.RequestMeta(c),
	})
	h.metrics.Signin(err)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	setSessionCookie(c, h.cookie, result)
	c.JSON(http.StatusOK, TokenResponse{Status: statusSuccess, Token: result.Token.Value})
}
