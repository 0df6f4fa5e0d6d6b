package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/infra/logger"
	"github.com/SwagatoSarowar/Natours/internal/transport/http/middleware"
)

var (
	errMalformedBody = domain.Validation("Invalid request body")
	errNotLoggedIn   = domain.Unauthenticated(domain.ReasonMissingToken, "You are not logged in. Please log in to get access")
)

// RespondWithError writes err using its domain kind. Failures the caller
// cannot act on are logged with the trace id before the generic message is
// returned.
func RespondWithError(c *gin.Context, log *zap.Logger, err error) {
	if err == nil {
		return
	}

	de := domain.AsError(err)
	switch de.Kind {
	case domain.KindInternal, domain.KindTransientDelivery:
		if log != nil {
			logger.WithContext(c.Request.Context(), log).Error("request failed",
				zap.String("trace_id", middleware.GetTraceID(c)),
				zap.String("route", c.FullPath()),
				zap.Stringer("kind", de.Kind),
				zap.Error(err),
			)
		}
	}

	middleware.AbortWithError(c, err)
}

// bindJSON decodes the request body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, log *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondWithError(c, log, errMalformedBody)
		return false
	}
	return true
}
