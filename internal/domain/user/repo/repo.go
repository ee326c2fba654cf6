package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	// GetUsersByIDs returns the live users among ids. Unknown ids are skipped.
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	// DeleteUser soft deletes the account. It disappears from every lookup
	// and its email can be registered again.
	DeleteUser(ctx context.Context, id uuid.UUID) error
	CountUsers(ctx context.Context) (int64, error)
}

// RevocationRepo is the logout blacklist. Entries live until the token would
// have expired on its own.
type RevocationRepo interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeUser invalidates every session of userID issued before cutoff.
	// The entry is kept until retainUntil.
	RevokeUser(ctx context.Context, userID uuid.UUID, cutoff, retainUntil time.Time) error
	// RevokedBefore returns the user's cutoff, or the zero time.
	RevokedBefore(ctx context.Context, userID uuid.UUID) (time.Time, error)
}

type ResetTokenRepo interface {
	CreateResetToken(ctx context.Context, token model.ResetToken) error
	// ConsumeResetToken marks the token consumed iff it is still issued at now
	// and returns its owner. Anything else is ErrInvalidOrUsedToken.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
	// Purge deletes consumed and expired tokens and reports how many went.
	Purge(ctx context.Context, now time.Time) (int64, error)
}
