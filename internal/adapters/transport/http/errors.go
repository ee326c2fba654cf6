package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
)

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg, Code: code})
}

// handleError maps domain errors to responses. Order matters: a deadline
// wrapped as internal is still reported as unavailable.
func handleError(c *gin.Context, err error) {
	switch {
	case customErrors.IsUnavailable(err):
		_ = c.Error(err)
		abort(c, http.StatusServiceUnavailable, dto.CodeUnavailable, "service unavailable")
	case customErrors.IsInvalidArgument(err):
		var fields dto.FieldErrors
		if errors.As(err, &fields) {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:  "validation failed",
				Code:   dto.CodeValidation,
				Fields: fields,
			})
			return
		}
		abort(c, http.StatusBadRequest, dto.CodeValidation, err.Error())
	case customErrors.IsInvalidCredentials(err):
		abort(c, http.StatusUnauthorized, dto.CodeInvalidCredentials, "invalid credentials")
	case customErrors.IsInvalidToken(err):
		abort(c, http.StatusUnauthorized, dto.CodeUnauthenticated, "authentication required")
	case customErrors.IsInvalidOrUsedToken(err):
		abort(c, http.StatusBadRequest, dto.CodeInvalidResetToken, "reset token is invalid or already used")
	case customErrors.IsDuplicateEmail(err):
		abort(c, http.StatusConflict, dto.CodeDuplicateEmail, "email already registered")
	case customErrors.IsNotFound(err):
		abort(c, http.StatusNotFound, dto.CodeNotFound, "not found")
	default:
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, dto.CodeInternal, "internal server error")
	}
}
