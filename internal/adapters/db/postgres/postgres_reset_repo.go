package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
	"gorm.io/gorm"
)

type PostgresResetTokenRepo struct {
	db *gorm.DB
}

var _ repo.ResetTokenRepo = (*PostgresResetTokenRepo)(nil)

func NewPostgresResetTokenRepo(db *gorm.DB) *PostgresResetTokenRepo {
	return &PostgresResetTokenRepo{db: db}
}

func (p *PostgresResetTokenRepo) CreateResetToken(ctx context.Context, t model.ResetToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	rec := resetTokenRecord{
		ID:        t.ID,
		UserID:    t.UserID,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
	}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return wrapDBError(err, "CreateResetToken")
	}
	return nil
}

// ConsumeResetToken flips consumed_at with a conditional UPDATE so two
// concurrent submissions cannot both succeed.
func (p *PostgresResetTokenRepo) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (uuid.UUID, error) {
	now = now.UTC()
	var rec resetTokenRecord
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&resetTokenRecord{}).
			Where("token_hash = ? AND consumed_at IS NULL AND expires_at > ?", hash, now).
			Update("consumed_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return customErrors.ErrInvalidOrUsedToken
		}
		return tx.Where("token_hash = ?", hash).First(&rec).Error
	})
	switch {
	case customErrors.IsInvalidOrUsedToken(err):
		return uuid.Nil, err
	case err != nil:
		return uuid.Nil, wrapDBError(err, "ConsumeResetToken")
	}
	return rec.UserID, nil
}

func (p *PostgresResetTokenRepo) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := p.db.WithContext(ctx).
		Where("consumed_at IS NOT NULL OR expires_at <= ?", now.UTC()).
		Delete(&resetTokenRecord{})
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "PurgeResetTokens")
	}
	return res.RowsAffected, nil
}
