package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	"github.com/peitalin/dt-auth-service/internal/infra/dispatch"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inlineJobs struct{ accept bool }

func (s inlineJobs) Submit(job dispatch.Job) bool {
	if !s.accept {
		return false
	}
	_ = job.Run(context.Background())
	return true
}

type recorder struct{ got []notify.Event }

func (r *recorder) PublishEvent(_ context.Context, e notify.Event) error {
	r.got = append(r.got, e)
	return nil
}

func TestEmitter_Emit(t *testing.T) {
	rec := &recorder{}
	e := NewEmitter(inlineJobs{accept: true}, rec, zap.NewNop())
	id := uuid.New()

	e.Emit(notify.EventUserCreated, id)

	require.Len(t, rec.got, 1)
	require.Equal(t, notify.EventUserCreated, rec.got[0].Type)
	require.Equal(t, id, rec.got[0].UserID)
	require.False(t, rec.got[0].OccurredAt.IsZero())
}

func TestEmitter_DroppedAndNil(t *testing.T) {
	rec := &recorder{}
	NewEmitter(inlineJobs{accept: false}, rec, zap.NewNop()).Emit(notify.EventUserCreated, uuid.New())
	require.Empty(t, rec.got)

	var e *Emitter
	e.Emit(notify.EventUserCreated, uuid.New())
}
