package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_CRUD(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	u, err := r.CreateUser(ctx, model.User{Email: "Severus@Hogwarts.com", PasswordHash: "h", Username: "snape"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, u.ID)
	require.False(t, u.CreatedAt.IsZero())

	got, err := r.GetUserByEmail(ctx, "severus@hogwarts.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got, err = r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "snape", got.Username)

	first := "Severus"
	got, err = r.UpdateProfile(ctx, u.ID, model.ProfilePatch{FirstName: &first})
	require.NoError(t, err)
	require.Equal(t, "Severus", got.FirstName)

	require.NoError(t, r.UpdatePasswordHash(ctx, u.ID, "h2"))
	got, _ = r.GetUserByID(ctx, u.ID)
	require.Equal(t, "h2", got.PasswordHash)

	_, err = r.GetUserByID(ctx, uuid.New())
	require.True(t, customErrors.IsNotFound(err))
	require.True(t, customErrors.IsNotFound(r.UpdatePasswordHash(ctx, uuid.New(), "x")))
}

func TestUserRepo_DuplicateEmailLeavesCount(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	_, err := r.CreateUser(ctx, model.User{Email: "a@b.c", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = r.CreateUser(ctx, model.User{Email: " A@B.C", PasswordHash: "h"})
	require.ErrorIs(t, err, customErrors.ErrDuplicateEmail)

	n, err := r.CountUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestUserRepo_ConcurrentCreateSameEmail(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.CreateUser(ctx, model.User{Email: "race@b.c"}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
}

func TestUserRepo_EmailChange(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()
	a, _ := r.CreateUser(ctx, model.User{Email: "a@b.c"})
	_, _ = r.CreateUser(ctx, model.User{Email: "taken@b.c"})

	taken := "taken@b.c"
	_, err := r.UpdateProfile(ctx, a.ID, model.ProfilePatch{Email: &taken})
	require.ErrorIs(t, err, customErrors.ErrDuplicateEmail)

	fresh := "new@b.c"
	_, err = r.UpdateProfile(ctx, a.ID, model.ProfilePatch{Email: &fresh})
	require.NoError(t, err)

	_, err = r.GetUserByEmail(ctx, "a@b.c")
	require.True(t, customErrors.IsNotFound(err))
	got, err := r.GetUserByEmail(ctx, "new@b.c")
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
}

func TestUserRepo_CancelledContext(t *testing.T) {
	r := NewUserRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.GetUserByEmail(ctx, "a@b.c")
	require.ErrorIs(t, err, context.Canceled)
}

func TestResetTokenRepo_SingleUse(t *testing.T) {
	r := NewResetTokenRepo()
	ctx := context.Background()
	now := time.Now()
	owner := uuid.New()

	require.NoError(t, r.CreateResetToken(ctx, model.ResetToken{
		ID: uuid.New(), UserID: owner, TokenHash: "h1", ExpiresAt: now.Add(time.Hour),
	}))

	got, err := r.ConsumeResetToken(ctx, "h1", now)
	require.NoError(t, err)
	require.Equal(t, owner, got)

	_, err = r.ConsumeResetToken(ctx, "h1", now)
	require.ErrorIs(t, err, customErrors.ErrInvalidOrUsedToken)

	_, err = r.ConsumeResetToken(ctx, "unknown", now)
	require.ErrorIs(t, err, customErrors.ErrInvalidOrUsedToken)
}

func TestResetTokenRepo_Expired(t *testing.T) {
	r := NewResetTokenRepo()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.CreateResetToken(ctx, model.ResetToken{
		ID: uuid.New(), UserID: uuid.New(), TokenHash: "h", ExpiresAt: now.Add(time.Minute),
	}))
	_, err := r.ConsumeResetToken(ctx, "h", now.Add(2*time.Minute))
	require.ErrorIs(t, err, customErrors.ErrInvalidOrUsedToken)
	n, err := r.Purge(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestResetTokenRepo_ConcurrentConsume(t *testing.T) {
	r := NewResetTokenRepo()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, r.CreateResetToken(ctx, model.ResetToken{
		ID: uuid.New(), UserID: uuid.New(), TokenHash: "h", ExpiresAt: now.Add(time.Hour),
	}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ConsumeResetToken(ctx, "h", now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestRevocationRepo(t *testing.T) {
	r := NewRevocationRepo()
	ctx := context.Background()
	now := time.Now()
	r.now = func() time.Time { return now }

	revoked, err := r.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti", now.Add(time.Minute)))
	revoked, err = r.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	require.True(t, revoked)

	// past natural expiry the entry no longer matters
	r.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, _ = r.IsRevoked(ctx, "jti")
	require.False(t, revoked)
	require.NoError(t, r.Revoke(ctx, "other", now.Add(time.Hour)))
	require.Len(t, r.revoked, 1)
}

func TestRevocationRepo_UserCutoff(t *testing.T) {
	r := NewRevocationRepo()
	ctx := context.Background()
	now := time.Now()
	r.now = func() time.Time { return now }
	uid := uuid.New()

	require.NoError(t, r.RevokeUser(ctx, uid, now, now.Add(time.Hour)))
	cutoff, err := r.RevokedBefore(ctx, uid)
	require.NoError(t, err)
	require.True(t, now.Equal(cutoff))

	other, err := r.RevokedBefore(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, other.IsZero())

	r.now = func() time.Time { return now.Add(2 * time.Hour) }
	cutoff, err = r.RevokedBefore(ctx, uid)
	require.NoError(t, err)
	require.True(t, cutoff.IsZero())
	require.NoError(t, r.RevokeUser(ctx, uuid.New(), now, now.Add(3*time.Hour)))
	require.Len(t, r.users, 1)
}

func TestUserRepo_GetUsersByIDsAndDelete(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()

	a, err := r.CreateUser(ctx, model.User{Email: "severus@hogwarts.com", PasswordHash: "h"})
	require.NoError(t, err)
	b, err := r.CreateUser(ctx, model.User{Email: "lily@hogwarts.com", PasswordHash: "h"})
	require.NoError(t, err)

	got, err := r.GetUsersByIDs(ctx, []uuid.UUID{a.ID, uuid.New(), b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, a.ID, got[0].ID)
	require.Equal(t, b.ID, got[1].ID)

	require.NoError(t, r.DeleteUser(ctx, a.ID))
	require.True(t, customErrors.IsNotFound(r.DeleteUser(ctx, a.ID)))
	_, err = r.GetUserByEmail(ctx, "severus@hogwarts.com")
	require.True(t, customErrors.IsNotFound(err))
	got, err = r.GetUsersByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = r.CreateUser(ctx, model.User{Email: "Severus@hogwarts.com", PasswordHash: "h"})
	require.NoError(t, err)
}
