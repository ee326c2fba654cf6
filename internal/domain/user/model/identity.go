package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is the verified caller attached to a request by the session middleware.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	TokenID   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
