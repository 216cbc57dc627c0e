package broker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/domain"
)

// Publisher hands a notification to the durable queue, best-effort.
//
// Publish must never take the caller's operation down with it: every
// failure is logged and reported back as an ordinary value the caller is
// free to ignore. The rating writer relies on this to keep the primary
// write isolated from broker trouble.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// publishChannel is the slice of *amqp.Channel the publisher needs.
// Tests substitute a fake; production passes the shared channel.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher publishes to a named queue via the default exchange with
// the persistent delivery flag, so the broker writes the message to disk
// before considering it accepted. It does not wait for any consumer.
type AMQPPublisher struct {
	ch       publishChannel
	queue    string
	logger   *zap.Logger
	onFailed func()
}

// NewAMQPPublisher constructs a publisher bound to queue. onFailed is an
// optional metrics hook (nil = no-op) incremented per swallowed failure.
func NewAMQPPublisher(ch publishChannel, queue string, logger *zap.Logger, onFailed func()) *AMQPPublisher {
	if onFailed == nil {
		onFailed = func() {}
	}
	return &AMQPPublisher{ch: ch, queue: queue, logger: logger, onFailed: onFailed}
}

func (p *AMQPPublisher) Publish(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return p.swallow(n, err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange routes by queue name
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return p.swallow(n, err)
	}
	return nil
}

// swallow records the failure and returns it purely as information.
// Callers must not fail their own operation on this value.
func (p *AMQPPublisher) swallow(n domain.Notification, err error) error {
	p.onFailed()
	p.logger.Warn("notification publish failed",
		zap.String("notification_id", n.ID),
		zap.Int64("subject_id", n.ServiceProviderID),
		zap.Error(err),
	)
	return err
}

var _ Publisher = (*AMQPPublisher)(nil)
