package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	"github.com/peitalin/dt-auth-service/internal/infra/dispatch"
	"go.uber.org/zap"
)

// Submitter accepts background jobs. *dispatch.Dispatcher implements it.
type Submitter interface {
	Submit(job dispatch.Job) bool
}

// Emitter publishes domain events off the request path.
type Emitter struct {
	jobs Submitter
	pub  notify.EventPublisher
	log  *zap.Logger
	now  func() time.Time
}

func NewEmitter(jobs Submitter, pub notify.EventPublisher, log *zap.Logger) *Emitter {
	if pub == nil {
		pub = notify.NopPublisher{}
	}
	return &Emitter{jobs: jobs, pub: pub, log: log, now: time.Now}
}

// Emit is a no-op on a nil Emitter.
func (e *Emitter) Emit(eventType string, userID uuid.UUID) {
	if e == nil {
		return
	}
	ev := notify.Event{Type: eventType, UserID: userID, OccurredAt: e.now().UTC()}
	ok := e.jobs.Submit(dispatch.Job{
		Name: eventType,
		Run: func(ctx context.Context) error {
			return e.pub.PublishEvent(ctx, ev)
		},
	})
	if !ok {
		e.log.Warn("event dropped", zap.String("type", eventType), zap.Stringer("user_id", userID))
	}
}
