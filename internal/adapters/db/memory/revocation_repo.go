package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
)

// RevocationRepo is an in-process logout blacklist. Entries past their
// expiry are ignored and dropped on the next Revoke.
type RevocationRepo struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	users   map[uuid.UUID]userCutoff
	now     func() time.Time
}

type userCutoff struct {
	cutoff, until time.Time
}

var _ repo.RevocationRepo = (*RevocationRepo)(nil)

func NewRevocationRepo() *RevocationRepo {
	return &RevocationRepo{
		revoked: make(map[string]time.Time),
		users:   make(map[uuid.UUID]userCutoff),
		now:     time.Now,
	}
}

func (r *RevocationRepo) Revoke(ctx context.Context, jti string, exp time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, e := range r.revoked {
		if !now.Before(e) {
			delete(r.revoked, k)
		}
	}
	if now.Before(exp) {
		r.revoked[jti] = exp
	}
	return nil
}

func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.revoked[jti]
	return ok && r.now().Before(exp), nil
}

func (r *RevocationRepo) RevokeUser(ctx context.Context, userID uuid.UUID, cutoff, retainUntil time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, c := range r.users {
		if !now.Before(c.until) {
			delete(r.users, k)
		}
	}
	if now.Before(retainUntil) {
		r.users[userID] = userCutoff{cutoff: cutoff, until: retainUntil}
	}
	return nil
}

func (r *RevocationRepo) RevokedBefore(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.users[userID]
	if !ok || !r.now().Before(c.until) {
		return time.Time{}, nil
	}
	return c.cutoff, nil
}
