package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type PostgresUserRepo struct {
	db *gorm.DB
}

var _ repo.UserRepo = (*PostgresUserRepo)(nil)

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func wrapDBError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return customErrors.WrapUnavailable(err, op)
	}
	return customErrors.WrapInternal(err, op)
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = model.NormalizeEmail(user.Email)
	rec := toUserRecord(user)

	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicate(err) {
			return model.User{}, customErrors.ErrDuplicateEmail
		}
		return model.User{}, wrapDBError(err, "CreateUser")
	}
	return rec.toModel(), nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var rec userRecord
	res := p.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&rec)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, wrapDBError(err, "GetUserByEmail")
	}
	return rec.toModel(), nil
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var rec userRecord
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&rec)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, wrapDBError(err, "GetUserByID")
	}
	return rec.toModel(), nil
}

func (p *PostgresUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.User, error) {
	var out userRecord
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			return err
		}
		updates := map[string]any{"updated_at": time.Now().UTC()}
		if patch.Email != nil {
			updates["email"] = model.NormalizeEmail(*patch.Email)
		}
		if patch.Username != nil {
			updates["username"] = *patch.Username
		}
		if patch.FirstName != nil {
			updates["first_name"] = *patch.FirstName
		}
		if patch.LastName != nil {
			updates["last_name"] = *patch.LastName
		}
		if err := tx.Model(&userRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.User{}, customErrors.ErrNotFound
	case isDuplicate(err):
		return model.User{}, customErrors.ErrDuplicateEmail
	case err != nil:
		return model.User{}, wrapDBError(err, "UpdateProfile")
	}
	return out.toModel(), nil
}

func (p *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := p.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if err := res.Error; err != nil {
		return wrapDBError(err, "UpdatePasswordHash")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

func (p *PostgresUserRepo) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []userRecord
	if err := p.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, wrapDBError(err, "GetUsersByIDs")
	}
	byID := make(map[uuid.UUID]userRecord, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	// keep the caller's order
	out := make([]model.User, 0, len(recs))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r.toModel())
			delete(byID, id)
		}
	}
	return out, nil
}

// DeleteUser sets deleted_at and drops the user's pending reset tokens.
func (p *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&userRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("user_id = ?", id).Delete(&resetTokenRecord{}).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return customErrors.ErrNotFound
	case err != nil:
		return wrapDBError(err, "DeleteUser")
	}
	return nil
}

func (p *PostgresUserRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.WithContext(ctx).Model(&userRecord{}).Count(&n).Error; err != nil {
		return 0, wrapDBError(err, "CountUsers")
	}
	return n, nil
}
