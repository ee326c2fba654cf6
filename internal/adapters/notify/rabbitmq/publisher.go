package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peitalin/dt-auth-service/internal/domain/user/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ResetPublisher hands reset notifications to the mail worker via a durable queue.
type ResetPublisher struct {
	conn  *amqp.Connection
	chn   Channel
	queue string
}

var _ notify.ResetSender = (*ResetPublisher)(nil)

func Dial(url, queue string) (*ResetPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	p, err := NewResetPublisher(chn, queue)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func NewResetPublisher(chn Channel, queue string) (*ResetPublisher, error) {
	_, err := chn.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &ResetPublisher{chn: chn, queue: queue}, nil
}

func (p *ResetPublisher) SendPasswordReset(ctx context.Context, n notify.ResetNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.chn.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         "password_reset",
			Body:         body,
		},
	)
}

func (p *ResetPublisher) Close() error {
	if err := p.chn.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
