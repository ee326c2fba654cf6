package service

import (
	"context"

	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
)

type Service interface {
	CreateUser(context.Context, dto.CreateUserDTO) (model.User, error)
	Login(context.Context, dto.LoginDTO) (model.Session, error)
	// Authenticate verifies a session token and checks it was not logged out.
	Authenticate(ctx context.Context, token string) (model.Identity, error)
	Logout(context.Context, model.Identity) error
	GetProfile(context.Context, model.Identity) (model.User, error)
	GetPublicProfile(ctx context.Context, userID string) (model.User, error)
	GetPublicProfileByEmail(ctx context.Context, email string) (model.User, error)
	// GetPublicProfiles skips ids that match no live account.
	GetPublicProfiles(context.Context, dto.UsersByIDsDTO) ([]model.User, error)
	// UpdateProfile returns a new session when the email changed.
	UpdateProfile(context.Context, model.Identity, dto.UpdateProfileDTO) (model.User, *model.Session, error)
	// ChangePassword ends every session of the user, the caller's included.
	ChangePassword(context.Context, model.Identity, dto.ChangePasswordDTO) error
	CheckPassword(context.Context, model.Identity, dto.PasswordCheckDTO) error
	// DeleteAccount soft deletes the caller's account after re-checking the
	// password and ends all of its sessions.
	DeleteAccount(context.Context, model.Identity, dto.DeleteAccountDTO) error
}
