package domain

import "time"

// UserRegisteredEvent represents the payload for <prefix>.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	Role         Role
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for <prefix>.user.password_changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	// Method is "update" for authenticated changes and "reset" for token resets.
	Method   string
	Metadata map[string]any
}

// PasswordResetRequestedEvent represents the payload for <prefix>.user.password_reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            string
	RequestedAt       time.Time
	ExpiresAt         time.Time
	MaskedDestination string
	Delivered         bool
	Metadata          map[string]any
}

// UserDeactivatedEvent represents the payload for <prefix>.user.deactivated messages.
type UserDeactivatedEvent struct {
	EventID       string
	UserID        string
	DeactivatedAt time.Time
	Metadata      map[string]any
}
