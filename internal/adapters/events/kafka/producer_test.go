package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestEventProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewEventProducerWithWriter(w)

	e := notify.Event{Type: notify.EventUserCreated, UserID: uuid.New(), OccurredAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, p.PublishEvent(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	require.Equal(t, e.UserID.String(), string(msg.Key))
	require.Equal(t, "event-type", msg.Headers[0].Key)
	require.Equal(t, notify.EventUserCreated, string(msg.Headers[0].Value))

	var got notify.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.Equal(t, e, got)
}

func TestEventProducer_WriterError(t *testing.T) {
	p := NewEventProducerWithWriter(&fakeWriter{err: errors.New("leader not available")})
	err := p.PublishEvent(context.Background(), notify.Event{Type: notify.EventUserCreated, UserID: uuid.New()})
	require.ErrorContains(t, err, "leader not available")
}
