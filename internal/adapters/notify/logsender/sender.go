package logsender

import (
	"context"

	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	lg "github.com/peitalin/dt-auth-service/internal/infra/log"
	"go.uber.org/zap"
)

// Sender writes reset notifications to the log instead of a mail queue.
// Meant for local runs; the token itself is only logged at debug level.
type Sender struct {
	log *zap.Logger
}

var _ notify.ResetSender = (*Sender)(nil)

func New(log *zap.Logger) *Sender {
	return &Sender{log: log.Named("reset-mail")}
}

func (s *Sender) SendPasswordReset(_ context.Context, n notify.ResetNotification) error {
	s.log.Info("password reset requested",
		lg.Email(n.Email),
		zap.Stringer("user_id", n.UserID),
		zap.Time("expires_at", n.ExpiresAt),
	)
	s.log.Debug("password reset link", zap.String("url", n.ResetURL))
	return nil
}
