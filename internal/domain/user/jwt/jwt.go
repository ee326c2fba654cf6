package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the payload of the dt-auth cookie. Subject holds the email.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

func (c SessionClaims) UID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

type TokenService interface {
	Issue(userID uuid.UUID, email string) (string, SessionClaims, error)
	Verify(raw string) (string, error)
	Decode(raw string) (SessionClaims, error)
	// TTL is how long an issued session stays valid.
	TTL() time.Duration
}
