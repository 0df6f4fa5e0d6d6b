package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/infra/telemetry"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

// PasswordHandler exposes password change and reset endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	resets    *usecase.PasswordResetService
	metrics   *telemetry.AuthMetrics
	cookie    CookieOptions
	logger    *zap.Logger
}

// NewPasswordHandler constructs PasswordHandler. metrics may be nil.
func NewPasswordHandler(
	passwords *usecase.PasswordService,
	resets *usecase.PasswordResetService,
	metrics *telemetry.AuthMetrics,
	cookie CookieOptions,
	log *zap.Logger,
) *PasswordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordHandler{passwords: passwords, resets: resets, metrics: metrics, cookie: cookie, logger: log}
}

// ForgetPassword godoc
// @Summary Request a password reset link
// @Description Emails a single-use reset link. The response is the same whether or not the email is registered.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ForgetPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/users/forget-password [post]
func (h *PasswordHandler) ForgetPassword(c *gin.Context) {
	var req ForgetPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	h.metrics.ResetStage(telemetry.ResetStageRequested)
	sent, err := h.resets.ForgetPassword(c.Request.Context(), usecase.ForgetPasswordInput{
		Email: req.Email,
		Meta:  middleware.RequestMeta(c),
	})
	if err != nil {
		if domain.AsError(err).Kind == domain.KindTransientDelivery {
			h.metrics.ResetStage(telemetry.ResetStageFailed)
		}
		RespondWithError(c, h.logger, err)
		return
	}

	if sent {
		h.metrics.ResetStage(telemetry.ResetStageDelivered)
	} else {
		h.metrics.ResetStage(telemetry.ResetStageUnknownEmail)
	}
	c.JSON(http.StatusOK, MessageResponse{Status: statusSuccess, Message: usecase.GenericForgetMessage()})
}

// ResetPassword godoc
// @Summary Reset a password
// @Description Consumes a reset token, stores the new password and returns a fresh session token.
// @Tags Password
// @Accept json
// @Produce json
// @Param token path string true "Reset token from the emailed link"
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/users/reset-password/{token} [patch]
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.resets.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		Token:           c.Param("token"),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Meta:            middleware.RequestMeta(c),
	})
	if err != nil {
		h.metrics.ResetStage(telemetry.ResetStageRejected)
		RespondWithError(c, h.logger, err)
		return
	}

	h.metrics.ResetStage(telemetry.ResetStageCompleted)
	setSessionCookie(c, h.cookie, result)
	c.JSON(http.StatusOK, TokenResponse{Status: statusSuccess, Token: result.Token.Value})
}

// UpdatePassword godoc
// @Summary Change the current password
// @Description Re-verifies the current password and issues a new token. Tokens issued earlier stop working.
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdatePasswordRequest true "Current and new password"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/update-password [patch]
func (h *PasswordHandler) UpdatePassword(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		RespondWithError(c, h.logger, errNotLoggedIn)
		return
	}

	var req UpdatePasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	result, err := h.passwords.UpdatePassword(c.Request.Context(), identity, usecase.UpdatePasswordInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Meta:            middleware.RequestMeta(c),
	})
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	setSessionCookie(c, h.cookie, result)
	c.JSON(http.StatusOK, TokenResponse{Status: statusSuccess, Token: result.Token.Value})
}
