package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"gorm.io/gorm"
)

type userRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"not null;uniqueIndex:users_email_key,where:deleted_at IS NULL"`
	PasswordHash string    `gorm:"not null"`
	Username     string    `gorm:"not null;default:''"`
	FirstName    string    `gorm:"not null;default:''"`
	LastName     string    `gorm:"not null;default:''"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (userRecord) TableName() string { return "users" }

func toUserRecord(u model.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type resetTokenRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash  string    `gorm:"not null;uniqueIndex:password_reset_tokens_hash_key"`
	ExpiresAt  time.Time `gorm:"not null"`
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (resetTokenRecord) TableName() string { return "password_reset_tokens" }

// AutoMigrateModels creates the schema without golang-migrate. Used with
// sqlite in tests; production runs the embedded SQL migrations.
var AutoMigrateModels = []any{&userRecord{}, &resetTokenRecord{}}
