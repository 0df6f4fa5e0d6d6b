package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

// UserHandler exposes the current user's profile and the admin listing.
type UserHandler struct {
	users  *usecase.UserService
	logger *zap.Logger
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{users: users, logger: log}
}

// Me godoc
// @Summary Current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		RespondWithError(c, h.logger, errNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, UserResponse{Status: statusSuccess, Data: UserData{User: newUserView(identity)}})
}

// UpdateCurrentUser godoc
// @Summary Update the current user's profile
// @Description Changes name, email or photo. Role and password cannot be changed here.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateCurrentUserRequest true "Profile fields"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users/update-current-user [patch]
func (h *UserHandler) UpdateCurrentUser(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		RespondWithError(c, h.logger, errNotLoggedIn)
		return
	}

	var req UpdateCurrentUserRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	updated, err := h.users.UpdateCurrentUser(c.Request.Context(), identity, usecase.UpdateProfileInput{
		Name:             req.Name,
		Email:            req.Email,
		Photo:            req.Photo,
		PasswordSupplied: req.Password != nil || req.ConfirmPassword != nil,
	})
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{Status: statusSuccess, Data: UserData{User: newUserView(updated)}})
}

// DeleteCurrentUser godoc
// @Summary Deactivate the current user
// @Description Soft deletes the account. Existing tokens stop working.
// @Tags Users
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/delete-current-user [delete]
func (h *UserHandler) DeleteCurrentUser(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		RespondWithError(c, h.logger, errNotLoggedIn)
		return
	}

	if err := h.users.DeleteCurrentUser(c.Request.Context(), identity, middleware.RequestMeta(c)); err != nil {
		RespondWithError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List godoc
// @Summary List users
// @Description Restricted to admin and lead-guide.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size" default(100)
// @Param page query int false "Page number" default(1)
// @Success 200 {object} UserListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}
	page, err := queryInt(c, "page")
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	users, err := h.users.ListUsers(c.Request.Context(), usecase.ListUsersInput{Limit: limit, Page: page})
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	c.JSON(http.StatusOK, UserListResponse{
		Status:  statusSuccess,
		Results: len(views),
		Data:    UsersData{Users: views},
	})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, domain.Validation("Query parameter " + name + " must be a non-negative integer")
	}
	return value, nil
}
