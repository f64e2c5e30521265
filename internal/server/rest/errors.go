package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/gin-gonic/gin"
)

const msgInternal = "internal error"

// errorStatus maps a service error to its HTTP status and client message.
// Validation errors keep their detail; everything unknown is a bare 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNoToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, common.ErrNotVerified),
		errors.Is(err, common.ErrNotApproved),
		errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrBadCredentials),
		errors.Is(err, common.ErrAlreadyApproved),
		errors.Is(err, common.ErrAlreadyVerified),
		errors.Is(err, common.ErrSelfDelete),
		errors.Is(err, common.ErrInvalidRole),
		errors.Is(err, common.ErrNoIDs),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrInvalidOrExpiredToken),
		errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()

	case errors.Is(err, common.ErrEmailDispatch):
		return http.StatusInternalServerError, common.ErrEmailDispatch.Error()

	case errors.Is(err, common.ErrConversionFailed), errors.Is(err, common.ErrNoActiveSMTP):
		return http.StatusInternalServerError, err.Error()
	}

	return http.StatusInternalServerError, msgInternal
}

// respondError logs err and aborts the request with {"message": ...}.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		s.logger.Warn(ctx, "request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
