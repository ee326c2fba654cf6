package dto

import (
	"time"

	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
)

type CreateUserDTO struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	Password  string `json:"password"   validate:"required,strongpwd"`
	Username  string `json:"username"   validate:"omitempty,max=64,nocontrol"`
	FirstName string `json:"first_name" validate:"max=64,nocontrol"`
	LastName  string `json:"last_name"  validate:"max=64,nocontrol"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileDTO is a partial update. ID is accepted for compatibility
// with older clients but the session decides whose profile changes.
type UpdateProfileDTO struct {
	ID        *string `json:"id"         validate:"omitempty"`
	Email     *string `json:"email"      validate:"omitempty,email,max=254"`
	Username  *string `json:"username"   validate:"omitempty,max=64,nocontrol"`
	FirstName *string `json:"first_name" validate:"omitempty,max=64,nocontrol"`
	LastName  *string `json:"last_name"  validate:"omitempty,max=64,nocontrol"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,strongpwd"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordDTO struct {
	Token       string `json:"token"        validate:"required,min=16,max=128"`
	NewPassword string `json:"new_password" validate:"required,strongpwd"`
}

// UsersByIDsDTO keeps the camelCase key older clients send.
type UsersByIDsDTO struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,max=100"`
}

type PasswordCheckDTO struct {
	Password string `json:"password" validate:"required"`
}

type DeleteAccountDTO struct {
	Password string `json:"password" validate:"required"`
}

// PrivateProfile is only ever returned to the profile owner.
type PrivateProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicProfile has no email and no credential fields.
type PublicProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPrivateProfile(u model.User) PrivateProfile {
	return PrivateProfile{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewPublicProfile(u model.User) PublicProfile {
	return PublicProfile{
		ID:        u.ID.String(),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

func NewPublicProfiles(users []model.User) []PublicProfile {
	out := make([]PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, NewPublicProfile(u))
	}
	return out
}

type PublicProfilesResponse struct {
	Users []PublicProfile `json:"users"`
}

type PasswordCheckResponse struct {
	PasswordMatches bool `json:"password_matches"`
}

type LoginResponse struct {
	User      PrivateProfile `json:"user"`
	ExpiresIn int            `json:"expires_in"`
}

type CreateUserResponse struct {
	User PrivateProfile `json:"user"`
}

type SessionInfo struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Issuer    string    `json:"issuer"`
	TokenID   string    `json:"token_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSessionInfo(id model.Identity) SessionInfo {
	return SessionInfo{
		UserID:    id.UserID.String(),
		Email:     id.Email,
		Issuer:    id.Issuer,
		TokenID:   id.TokenID,
		IssuedAt:  id.IssuedAt,
		ExpiresAt: id.ExpiresAt,
	}
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidResetToken  = "INVALID_OR_USED_TOKEN"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL"
)
