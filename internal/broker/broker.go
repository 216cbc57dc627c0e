package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection bundles the process-wide AMQP connection and its single
// channel. Both are opened once at startup, handed to the Publisher and
// Consumer, and closed by the owner (main) during shutdown. Keeping the
// pair an explicit value instead of package state makes the ownership and
// release order visible at the call site.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker and opens the channel, retrying until attempts
// are exhausted or ctx is cancelled. Brokers routinely come up after the
// service in local compose setups, hence the retry loop.
func Connect(ctx context.Context, url string, attempts int, interval time.Duration) (*Connection, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			lastErr = err
			continue
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}
		return &Connection{conn: conn, ch: ch}, nil
	}
	return nil, fmt.Errorf("connect to broker: %w", lastErr)
}

// Channel exposes the underlying AMQP channel for the publisher and consumer.
func (c *Connection) Channel() *amqp.Channel {
	return c.ch
}

// Close releases the channel first, then the connection.
func (c *Connection) Close() error {
	if err := c.ch.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}

// DeclareQueue ensures the durable, named queue exists. The declaration is
// idempotent and survives broker restarts; both ends of the pipe call it
// so either can start first.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}
