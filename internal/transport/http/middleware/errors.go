package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as an ErrorResponse and stops the chain. Messages
// of internal errors are replaced by a generic one.
func AbortWithError(c *gin.Context, err error) {
	de := domain.AsError(err)
	code := StatusFor(de.Kind)

	message := de.Message
	if !de.Operational() || message == "" {
		message = "Something went wrong"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(code, ErrorResponse{
		Status:  statusLabel(code),
		Message: message,
		TraceID: GetTraceID(c),
	})
}

func statusLabel(code int) string {
	if code >= 500 {
		return "error"
	}
	return "fail"
}
