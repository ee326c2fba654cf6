package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	skafka "github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer used here, so tests can swap it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// EventProducer publishes user lifecycle events keyed by user id.
type EventProducer struct {
	writer Writer
}

var _ notify.EventPublisher = (*EventProducer)(nil)

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{writer: &skafka.Writer{
		Addr:         skafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func NewEventProducerWithWriter(w Writer) *EventProducer {
	return &EventProducer{writer: w}
}

func (p *EventProducer) PublishEvent(ctx context.Context, e notify.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, skafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: b,
		Headers: []skafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	})
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
