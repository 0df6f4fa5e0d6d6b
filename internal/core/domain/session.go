package domain

import "time"

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a signed session token with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// MailMessage is a single outbound email.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}
