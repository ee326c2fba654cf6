package reset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	"github.com/peitalin/dt-auth-service/internal/app/user/events"
	"github.com/peitalin/dt-auth-service/internal/app/user/password"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	"github.com/peitalin/dt-auth-service/internal/domain/user/repo"
	"github.com/peitalin/dt-auth-service/internal/infra/dispatch"
	lg "github.com/peitalin/dt-auth-service/internal/infra/log"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const tokenBytes = 32

type Manager interface {
	// SendResetPasswordEmail succeeds the same way whether or not the
	// address belongs to an account.
	SendResetPasswordEmail(context.Context, dto.ForgotPasswordDTO) error
	ResetPassword(context.Context, dto.ResetPasswordDTO) error
}

type Options struct {
	TTL      time.Duration
	ResetURL string
	// SessionTTL bounds how long a reset's session cutoff is remembered.
	SessionTTL time.Duration
}

type manager struct {
	users       repo.UserRepo
	tokens      repo.ResetTokenRepo
	revocations repo.RevocationRepo
	hasher      password.Hasher
	sender      notify.ResetSender
	jobs        events.Submitter
	events      *events.Emitter
	opts        Options
	v           *validator.Validate
	log         *zap.Logger
	now         func() time.Time
}

func New(
	ur repo.UserRepo,
	tr repo.ResetTokenRepo,
	rr repo.RevocationRepo,
	h password.Hasher,
	sender notify.ResetSender,
	jobs events.Submitter,
	em *events.Emitter,
	opts Options,
	v *validator.Validate,
	log *zap.Logger,
) Manager {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &manager{
		users: ur, tokens: tr, revocations: rr, hasher: h, sender: sender, jobs: jobs, events: em,
		opts: opts, v: v, log: log.Named("reset"), now: time.Now,
	}
}

func (m *manager) SendResetPasswordEmail(ctx context.Context, in dto.ForgotPasswordDTO) error {
	in.Email = model.NormalizeEmail(in.Email)
	if err := dto.Validate(m.v, in); err != nil {
		return err
	}

	user, err := m.users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		m.log.Info("reset requested for unknown email", lg.Email(in.Email))
		return nil
	case err != nil:
		return err
	}

	raw, err := newToken()
	if err != nil {
		return customErrors.WrapInternal(err, "generate reset token")
	}
	now := m.now()
	t := model.ResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(m.opts.TTL),
		CreatedAt: now,
	}
	if err := m.tokens.CreateResetToken(ctx, t); err != nil {
		return err
	}

	n := notify.ResetNotification{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     raw,
		ResetURL:  m.link(raw),
		ExpiresAt: t.ExpiresAt,
	}
	queued := m.jobs.Submit(dispatch.Job{
		Name: "password_reset_email",
		Run: func(ctx context.Context) error {
			return m.sender.SendPasswordReset(ctx, n)
		},
	})
	if !queued {
		m.log.Error("reset email not queued", zap.Stringer("user_id", user.ID))
	}
	return nil
}

func (m *manager) ResetPassword(ctx context.Context, in dto.ResetPasswordDTO) error {
	if err := dto.Validate(m.v, in); err != nil {
		return err
	}

	// hash first so a slow hasher cannot leave a consumed token behind
	newHash, err := m.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}

	now := m.now()
	userID, err := m.tokens.ConsumeResetToken(ctx, HashToken(in.Token), now)
	if err != nil {
		return err
	}
	// sessions opened with the old password end here
	if err := m.revocations.RevokeUser(ctx, userID, now.Truncate(time.Second), now.Add(m.opts.SessionTTL)); err != nil {
		return customErrors.WrapUnavailable(err, "revoke user sessions")
	}
	if err := m.users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return err
	}

	m.log.Info("password reset", zap.Stringer("user_id", userID))
	m.events.Emit(notify.EventPasswordReset, userID)
	return nil
}

func (m *manager) link(token string) string {
	u, err := url.Parse(m.opts.ResetURL)
	if err != nil || m.opts.ResetURL == "" {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the form a reset token is stored and looked up by.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
