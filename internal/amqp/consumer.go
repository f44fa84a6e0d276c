package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, e Event) error

// AllEvents lists every routing key published by the services.
var AllEvents = []EventType{
	CategoryCreated, CategoryUpdated, CategoryDeleted,
	TransactionCreated, TransactionUpdated, TransactionDeleted,
}

// Consumer reads events from a durable queue bound to the exchange.
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
}

// NewConsumer declares the exchange and queue and binds the queue to each
// of keys.
func NewConsumer(url, exchangeName, queueName string, keys []EventType) (*Consumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(step string, err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}

	q, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fail("declare queue", err)
	}

	for _, key := range keys {
		if err := ch.QueueBind(q.Name, string(key), exchangeName, false, nil); err != nil {
			return fail("bind "+string(key), err)
		}
	}

	if err := ch.Qos(10, 0, false); err != nil {
		return fail("set qos", err)
	}

	return &Consumer{conn: conn, channel: ch, queue: q.Name}, nil
}

// Consume delivers events to handler until ctx is done or the broker closes
// the channel.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	return consumeLoop(ctx, deliveries, handler)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// consumeLoop acks handled deliveries. Malformed bodies and handler errors
// are dropped without requeue; consumers are expected to resync on their own.
func consumeLoop(ctx context.Context, deliveries <-chan amqp091.Delivery, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			e, err := EventFromJSON(d.Body)
			if err != nil {
				slog.WarnContext(ctx, "Dropping malformed event", "error", err, "routing_key", d.RoutingKey)
				_ = d.Nack(false, false)
				continue
			}

			if err := handler(ctx, e); err != nil {
				slog.ErrorContext(ctx, "Event handler failed", "error", err, "event", e.Type, "id", e.ID)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
