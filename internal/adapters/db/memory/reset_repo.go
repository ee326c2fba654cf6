package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
)

type ResetTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]model.ResetToken
}

var _ repo.ResetTokenRepo = (*ResetTokenRepo)(nil)

func NewResetTokenRepo() *ResetTokenRepo {
	return &ResetTokenRepo{byHash: make(map[string]model.ResetToken)}
}

func (r *ResetTokenRepo) CreateResetToken(ctx context.Context, t model.ResetToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byHash[t.TokenHash]; exists {
		return customErrors.WrapInternal(customErrors.ErrInvalidArgument, "reset token hash collision")
	}
	r.byHash[t.TokenHash] = t
	return nil
}

func (r *ResetTokenRepo) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byHash[hash]
	if !ok || t.State(now) != model.ResetIssued {
		return uuid.Nil, customErrors.ErrInvalidOrUsedToken
	}
	consumed := now
	t.ConsumedAt = &consumed
	r.byHash[hash] = t
	return t.UserID, nil
}

// Purge drops tokens that can no longer be consumed.
func (r *ResetTokenRepo) Purge(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for h, t := range r.byHash {
		if t.State(now) != model.ResetIssued {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}
