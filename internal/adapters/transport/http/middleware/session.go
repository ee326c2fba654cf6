package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"go.uber.org/zap"
)

const IdentityKey = "identity"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

var unauthenticated = dto.ErrorResponse{Error: "authentication required", Code: dto.CodeUnauthenticated}

// Session requires a valid, non-revoked session cookie. Missing and invalid
// cookies get the same 401; a failing revocation store gets 503.
func Session(auth Authenticator, cookieName string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthenticated)
			return
		}

		id, err := auth.Authenticate(c.Request.Context(), raw)
		switch {
		case err == nil:
		case customErrors.IsUnavailable(err):
			log.Error("session check unavailable", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.ErrorResponse{
				Error: "service unavailable",
				Code:  dto.CodeUnavailable,
			})
			return
		default:
			log.Debug("session rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthenticated)
			return
		}

		c.Request = c.Request.WithContext(model.WithIdentity(c.Request.Context(), id))
		c.Set(IdentityKey, id)
		c.Next()
	}
}
