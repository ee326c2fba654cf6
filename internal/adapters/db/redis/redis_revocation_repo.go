package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
	"github.com/redis/go-redis/v9"
)

const (
	revokedPrefix     = "dt-auth:revoked:"
	revokedUserPrefix = "dt-auth:revoked-user:"
)

type RedisRevocationRepo struct {
	client redis.UniversalClient
}

var _ repo.RevocationRepo = (*RedisRevocationRepo)(nil)

func NewRedisRevocationRepo(client redis.UniversalClient) *RedisRevocationRepo {
	return &RedisRevocationRepo{client: client}
}

// Revoke blacklists jti until exp. Already expired tokens are skipped.
func (r *RedisRevocationRepo) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

// IsRevoked fails closed: on error the token counts as revoked.
func (r *RedisRevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return true, err
	}
	return n > 0, nil
}

// RevokeUser stores the cutoff as unix seconds, the precision of a token's iat.
func (r *RedisRevocationRepo) RevokeUser(ctx context.Context, userID uuid.UUID, cutoff, retainUntil time.Time) error {
	ttl := time.Until(retainUntil)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedUserPrefix+userID.String(), cutoff.Unix(), ttl).Err()
}

func (r *RedisRevocationRepo) RevokedBefore(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	secs, err := r.client.Get(ctx, revokedUserPrefix+userID.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}

func (r *RedisRevocationRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
