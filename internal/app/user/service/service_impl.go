package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	"github.com/peitalin/dt-auth-service/internal/app/user/events"
	"github.com/peitalin/dt-auth-service/internal/app/user/password"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/jwt"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
	lg "github.com/peitalin/dt-auth-service/internal/infra/log"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type userService struct {
	users       repo.UserRepo
	revocations repo.RevocationRepo
	tokens      jwt.TokenService
	hasher      password.Hasher
	events      *events.Emitter
	v           *validator.Validate
	log         *zap.Logger
	now         func() time.Time

	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash string
}

func New(
	ur repo.UserRepo,
	rr repo.RevocationRepo,
	ts jwt.TokenService,
	h password.Hasher,
	em *events.Emitter,
	v *validator.Validate,
	log *zap.Logger,
) Service {
	dummy, _ := h.Hash(uuid.NewString())
	return &userService{
		users: ur, revocations: rr, tokens: ts, hasher: h, events: em, v: v,
		log:       log.Named("user-service"),
		now:       time.Now,
		dummyHash: dummy,
	}
}

func (s *userService) CreateUser(ctx context.Context, in dto.CreateUserDTO) (model.User, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := dto.Validate(s.v, in); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.CreateUser(ctx, model.User{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	})
	if err != nil {
		if customErrors.IsDuplicateEmail(err) {
			return model.User{}, customErrors.ErrDuplicateEmail
		}
		return model.User{}, err
	}

	s.log.Info("user created", lg.Email(user.Email), zap.Stringer("user_id", user.ID))
	s.events.Emit(notify.EventUserCreated, user.ID)
	return user, nil
}

func (s *userService) Login(ctx context.Context, in dto.LoginDTO) (model.Session, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := dto.Validate(s.v, in); err != nil {
		return model.Session{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		_, _, _ = s.hasher.Verify(in.Password, s.dummyHash)
		return model.Session{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.Session{}, err
	}

	ok, needsRehash, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		return model.Session{}, customErrors.ErrInvalidCredentials
	}
	if needsRehash {
		s.rehash(ctx, user.ID, in.Password)
	}

	return s.issue(user)
}

func (s *userService) rehash(ctx context.Context, id uuid.UUID, plain string) {
	hash, err := s.hasher.Hash(plain)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, id, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.Stringer("user_id", id), zap.Error(err))
		return
	}
	s.log.Info("password hash upgraded", zap.Stringer("user_id", id))
}

func (s *userService) issue(user model.User) (model.Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

func (s *userService) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return model.Identity{}, err
	}
	uid, err := claims.UID()
	if err != nil {
		return model.Identity{}, customErrors.ErrInvalidToken
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.Identity{}, customErrors.WrapUnavailable(err, "revocation lookup")
	}
	if revoked {
		return model.Identity{}, customErrors.ErrInvalidToken
	}
	cutoff, err := s.revocations.RevokedBefore(ctx, uid)
	if err != nil {
		return model.Identity{}, customErrors.WrapUnavailable(err, "revocation lookup")
	}
	if !cutoff.IsZero() && (claims.IssuedAt == nil || claims.IssuedAt.Time.Before(cutoff)) {
		return model.Identity{}, customErrors.ErrInvalidToken
	}

	id := model.Identity{
		UserID:  uid,
		Email:   claims.Subject,
		TokenID: claims.ID,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

func (s *userService) Logout(ctx context.Context, id model.Identity) error {
	if id.TokenID == "" {
		return customErrors.ErrInvalidToken
	}
	if err := s.revocations.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return customErrors.WrapUnavailable(err, "revoke session")
	}
	s.log.Info("session revoked", zap.Stringer("user_id", id.UserID), zap.String("jti", id.TokenID))
	return nil
}

func (s *userService) GetProfile(ctx context.Context, id model.Identity) (model.User, error) {
	return s.users.GetUserByID(ctx, id.UserID)
}

func (s *userService) GetPublicProfile(ctx context.Context, userID string) (model.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return model.User{}, customErrors.NewInvalidArgument("user_id must be a uuid")
	}
	return s.users.GetUserByID(ctx, id)
}

func (s *userService) GetPublicProfileByEmail(ctx context.Context, email string) (model.User, error) {
	email = model.NormalizeEmail(email)
	if err := s.v.Var(email, "required,email"); err != nil {
		return model.User{}, dto.FieldErrors{"user_email": "email"}
	}
	return s.users.GetUserByEmail(ctx, email)
}

func (s *userService) GetPublicProfiles(ctx context.Context, in dto.UsersByIDsDTO) ([]model.User, error) {
	if err := dto.Validate(s.v, in); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(in.UserIDs))
	for _, raw := range in.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, dto.FieldErrors{"userIds": "uuid"}
		}
		ids = append(ids, id)
	}
	return s.users.GetUsersByIDs(ctx, ids)
}

func (s *userService) UpdateProfile(
	ctx context.Context,
	id model.Identity,
	in dto.UpdateProfileDTO,
) (model.User, *model.Session, error) {
	if in.Email != nil {
		normalized := model.NormalizeEmail(*in.Email)
		in.Email = &normalized
	}
	if err := dto.Validate(s.v, in); err != nil {
		return model.User{}, nil, err
	}
	if in.ID != nil && *in.ID != id.UserID.String() {
		s.log.Warn("profile update body id ignored",
			zap.Stringer("session_user_id", id.UserID),
			zap.String("body_id", *in.ID),
		)
	}

	current, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return model.User{}, nil, err
	}

	patch := model.ProfilePatch{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	emailChanged := in.Email != nil && *in.Email != current.Email
	if emailChanged {
		patch.Email = in.Email
	}
	if patch.IsEmpty() {
		return current, nil, nil
	}

	updated, err := s.users.UpdateProfile(ctx, id.UserID, patch)
	if err != nil {
		if customErrors.IsDuplicateEmail(err) {
			return model.User{}, nil, customErrors.ErrDuplicateEmail
		}
		return model.User{}, nil, err
	}
	s.events.Emit(notify.EventProfileUpdated, updated.ID)

	if !emailChanged {
		return updated, nil, nil
	}

	// the old token names the old email
	session, err := s.issue(updated)
	if err != nil {
		return model.User{}, nil, err
	}
	if err := s.revocations.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		s.log.Warn("revoke superseded session", zap.String("jti", id.TokenID), zap.Error(err))
	}
	return updated, &session, nil
}

func (s *userService) ChangePassword(ctx context.Context, id model.Identity, in dto.ChangePasswordDTO) error {
	if err := dto.Validate(s.v, in); err != nil {
		return err
	}

	user, err := s.verifyPassword(ctx, id.UserID, in.CurrentPassword)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.endSessions(ctx, id); err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", zap.Stringer("user_id", user.ID))
	s.events.Emit(notify.EventPasswordChanged, user.ID)
	return nil
}

func (s *userService) CheckPassword(ctx context.Context, id model.Identity, in dto.PasswordCheckDTO) error {
	if err := dto.Validate(s.v, in); err != nil {
		return err
	}
	_, err := s.verifyPassword(ctx, id.UserID, in.Password)
	return err
}

func (s *userService) DeleteAccount(ctx context.Context, id model.Identity, in dto.DeleteAccountDTO) error {
	if err := dto.Validate(s.v, in); err != nil {
		return err
	}
	user, err := s.verifyPassword(ctx, id.UserID, in.Password)
	if err != nil {
		return err
	}
	if err := s.endSessions(ctx, id); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	s.log.Info("user deleted", lg.Email(user.Email), zap.Stringer("user_id", user.ID))
	s.events.Emit(notify.EventUserDeleted, user.ID)
	return nil
}

func (s *userService) verifyPassword(ctx context.Context, uid uuid.UUID, plain string) (model.User, error) {
	user, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	ok, _, err := s.hasher.Verify(plain, user.PasswordHash)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, customErrors.ErrInvalidCredentials
	}
	return user, nil
}

// endSessions cuts off every session of the user issued before this second
// and blacklists the caller's own token, which may share that second.
func (s *userService) endSessions(ctx context.Context, id model.Identity) error {
	now := s.now()
	cutoff := now.Truncate(time.Second)
	if err := s.revocations.RevokeUser(ctx, id.UserID, cutoff, now.Add(s.tokens.TTL())); err != nil {
		return customErrors.WrapUnavailable(err, "revoke user sessions")
	}
	if id.TokenID != "" {
		if err := s.revocations.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
			return customErrors.WrapUnavailable(err, "revoke session")
		}
	}
	return nil
}
