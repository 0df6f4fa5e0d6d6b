package handlers

import (
	"time"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
)

const statusSuccess = "success"

// ErrorResponse is the body of every failed request.
type ErrorResponse = middleware.ErrorResponse

// SignupRequest is the self-service registration payload.
type SignupRequest struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirmPassword"`
	Photo           *string `json:"photo,omitempty"`
}

// SigninRequest carries login credentials.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgetPasswordRequest starts a password reset.
type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest sets a new password with a reset token from the URL.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdatePasswordRequest changes the password of the signed-in user.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateCurrentUserRequest lists the profile fields a user may change.
// Password fields are decoded only to reject them.
type UpdateCurrentUserRequest struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Photo           *string `json:"photo,omitempty"`
	Password        *string `json:"password,omitempty" swaggerignore:"true"`
	ConfirmPassword *string `json:"confirmPassword,omitempty" swaggerignore:"true"`
}

// UserView is the public representation of an identity.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photo     *string   `json:"photo,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(identity *domain.Identity) UserView {
	return UserView{
		ID:        identity.ID,
		Name:      identity.Name,
		Email:     identity.Email,
		Photo:     identity.Photo,
		Role:      string(identity.Role),
		CreatedAt: identity.CreatedAt,
	}
}

// UserData wraps a single user.
type UserData struct {
	User UserView `json:"user"`
}

// UsersData wraps a page of users.
type UsersData struct {
	Users []UserView `json:"users"`
}

// AuthResponse is returned by signup.
type AuthResponse struct {
	Status string   `json:"status"`
	Token  string   `json:"token"`
	Data   UserData `json:"data"`
}

// TokenResponse is returned by every other token-issuing endpoint.
type TokenResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Status string   `json:"status"`
	Data   UserData `json:"data"`
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Status  string    `json:"status"`
	Results int       `json:"results"`
	Data    UsersData `json:"data"`
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse reports liveness or readiness.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}
