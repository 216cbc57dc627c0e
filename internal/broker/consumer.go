package broker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/store"
)

// Acknowledger is the slice of amqp.Delivery the decision path needs.
// Tests drive Handle directly with a recording fake.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Hooks carries the metric callbacks injected by main. Using a struct
// keeps the consumer constructor signature clean; nil fields are no-ops.
type Hooks struct {
	OnAcked     func()
	OnRequeued  func()
	OnDiscarded func()
}

func (h *Hooks) fill() {
	if h.OnAcked == nil {
		h.OnAcked = func() {}
	}
	if h.OnRequeued == nil {
		h.OnRequeued = func() {}
	}
	if h.OnDiscarded == nil {
		h.OnDiscarded = func() {}
	}
}

// Consumer is the single long-lived worker draining the durable queue into
// the notification store.
//
// Acknowledgment is manual and every delivery resolves to exactly one of
// ack, nack-requeue, or nack-discard before the next one is handled:
// prefetch is set to 1 and the handler runs synchronously in the receive
// loop. That trades throughput for a failure model that is trivial to
// reason about, deliberately.
//
// Transient store failures requeue without a cap. There is no dead-letter
// exchange, so a persistently broken store loops the same delivery; this
// is an accepted risk, made visible through the requeue log line and the
// nack counter rather than hidden behind an invented retry limit.
type Consumer struct {
	ch     *amqp.Channel
	queue  string
	store  store.Store
	logger *zap.Logger
	hooks  Hooks
	done   chan struct{}
}

func NewConsumer(ch *amqp.Channel, queue string, st store.Store, logger *zap.Logger, hooks Hooks) *Consumer {
	hooks.fill()
	return &Consumer{
		ch:     ch,
		queue:  queue,
		store:  st,
		logger: logger,
		hooks:  hooks,
		done:   make(chan struct{}),
	}
}

// Start declares the queue, applies the prefetch limit, and launches the
// receive loop. Cancel ctx to stop accepting deliveries; the in-flight one
// finishes its ack/nack first. Wait blocks until the loop has exited.
func (c *Consumer) Start(ctx context.Context) error {
	if _, err := DeclareQueue(c.ch, c.queue); err != nil {
		return err
	}

	// One unacknowledged message at a time per channel.
	if err := c.ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag, broker-generated
		false, // autoAck must stay off: ack only after the store write
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	go c.run(ctx, deliveries)
	return nil
}

// Wait blocks until the receive loop has returned. Call after cancelling
// the context so the in-flight delivery is resolved before the channel is
// closed.
func (c *Consumer) Wait() {
	<-c.done
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	c.logger.Info("consumer started", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed by broker")
				return
			}
			c.Handle(ctx, d.Body, d.Redelivered, &d)
		}
	}
}

// Handle resolves one delivery: poison payloads are discarded for good
// (requeueing something that can never parse would loop forever), a failed
// store write requeues for a later attempt, and a stored notification acks.
// No outcome here is fatal to the loop. Exported as the seam for driving
// the decision path without a live broker channel.
func (c *Consumer) Handle(ctx context.Context, body []byte, redelivered bool, ack Acknowledger) {
	var n domain.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		c.logger.Error("discarding undeserializable payload",
			zap.ByteString("body", body),
			zap.Error(err),
		)
		if nackErr := ack.Nack(false, false); nackErr != nil {
			c.logger.Error("nack failed", zap.Error(nackErr))
		}
		c.hooks.OnDiscarded()
		return
	}

	log := c.logger.With(
		zap.String("notification_id", n.ID),
		zap.Int64("subject_id", n.ServiceProviderID),
		zap.Bool("redelivered", redelivered),
	)

	if err := c.store.Append(ctx, n); err != nil {
		log.Warn("store append failed, requeueing delivery", zap.Error(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("nack failed", zap.Error(nackErr))
		}
		c.hooks.OnRequeued()
		return
	}

	if err := ack.Ack(false); err != nil {
		// The store write landed but the ack did not reach the broker;
		// the broker will redeliver and the entry will be duplicated.
		// Accepted at-least-once behaviour.
		log.Error("ack failed", zap.Error(err))
		return
	}
	c.hooks.OnAcked()
	log.Debug("notification stored")
}
