package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the transport layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindTransientDelivery
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransientDelivery:
		return "transient_delivery"
	default:
		return "internal"
	}
}

// AuthReason narrows down why authentication failed.
type AuthReason string

const (
	ReasonMissingToken    AuthReason = "missing_token"
	ReasonInvalidToken    AuthReason = "invalid_token"
	ReasonExpired         AuthReason = "expired"
	ReasonSubjectGone     AuthReason = "subject_gone"
	ReasonPasswordChanged AuthReason = "password_changed"
	ReasonBadCredentials  AuthReason = "bad_credentials"
)

var (
	ErrUnknownRole         = errors.New("domain: unknown role")
	ErrResetPairIncomplete = errors.New("domain: reset token hash and expiry must be set together")
)

// Error is a classified failure. Message is safe to show to callers unless
// Kind is KindInternal.
type Error struct {
	Kind    ErrorKind
	Reason  AuthReason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and, when set on the target, reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Operational reports whether the message may be shown to the caller verbatim.
func (e *Error) Operational() bool {
	return e.Kind != KindInternal
}

// Sentinel targets for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrUnauthenticated   = &Error{Kind: KindAuthentication}
	ErrForbidden         = &Error{Kind: KindAuthorization}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrTransientDelivery = &Error{Kind: KindTransientDelivery}

	ErrMissingToken    = &Error{Kind: KindAuthentication, Reason: ReasonMissingToken}
	ErrInvalidToken    = &Error{Kind: KindAuthentication, Reason: ReasonInvalidToken}
	ErrExpiredToken    = &Error{Kind: KindAuthentication, Reason: ReasonExpired}
	ErrSubjectGone     = &Error{Kind: KindAuthentication, Reason: ReasonSubjectGone}
	ErrPasswordChanged = &Error{Kind: KindAuthentication, Reason: ReasonPasswordChanged}
	ErrBadCredentials  = &Error{Kind: KindAuthentication, Reason: ReasonBadCredentials}
)

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func Unauthenticated(reason AuthReason, message string) error {
	return &Error{Kind: KindAuthentication, Reason: reason, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string, err error) error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func TransientDelivery(message string, err error) error {
	return &Error{Kind: KindTransientDelivery, Message: message, Err: err}
}

func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: "Something went wrong", Err: err}
}

// AsError extracts a classified error, treating anything else as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Kind: KindInternal, Message: "Something went wrong", Err: err}
}
