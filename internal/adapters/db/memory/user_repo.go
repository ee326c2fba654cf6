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

// UserRepo keeps users in process memory. Email uniqueness is enforced
// against the normalized address under the same write lock as the insert.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

var _ repo.UserRepo = (*UserRepo)(nil)

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[uuid.UUID]model.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (r *UserRepo) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.NormalizeEmail(u.Email)
	if _, taken := r.byEmail[key]; taken {
		return model.User{}, customErrors.ErrDuplicateEmail
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, taken := r.byID[u.ID]; taken {
		return model.User{}, customErrors.WrapInternal(customErrors.ErrInvalidArgument, "duplicate user id")
	}
	now := r.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	r.byID[u.ID] = u
	r.byEmail[key] = u.ID
	return u, nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	oldKey := model.NormalizeEmail(u.Email)
	updated := patch.Apply(u)
	newKey := model.NormalizeEmail(updated.Email)
	if newKey != oldKey {
		if _, taken := r.byEmail[newKey]; taken {
			return model.User{}, customErrors.ErrDuplicateEmail
		}
		delete(r.byEmail, oldKey)
		r.byEmail[newKey] = id
	}
	updated.UpdatedAt = r.now().UTC()
	r.byID[id] = updated
	return updated, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return customErrors.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	return nil
}

func (r *UserRepo) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := r.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// DeleteUser drops the user. There is nothing to keep a tombstone for in
// process memory.
func (r *UserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return customErrors.ErrNotFound
	}
	delete(r.byEmail, model.NormalizeEmail(u.Email))
	delete(r.byID, id)
	return nil
}

func (r *UserRepo) CountUsers(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
