package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Recorder interface {
	EventConsumed(routingKey, outcome string)
}

// Consumer feeds one queue's deliveries to a handler, one at a time.
type Consumer struct {
	ch       *amqp.Channel
	queue    string
	handle   HandlerFunc
	logger   *slog.Logger
	recorder Recorder
}

// NewOrderStatusConsumer declares the exchange and the storefront's
// order.status.v1 queue and returns a consumer ready to Run.
func NewOrderStatusConsumer(conn *amqp.Connection, handle HandlerFunc, logger *slog.Logger, rec Recorder) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	if err := declareBoundQueue(ch, OrderStatusQueue, OrderStatusRoutingKey); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	return &Consumer{ch: ch, queue: OrderStatusQueue, handle: handle, logger: logger, recorder: rec}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.ch.Close()

	msgs, err := c.ch.Consume(
		c.queue,
		orderStatusConsumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("consumer started", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping consumer", "queue", c.queue)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, msg)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, msg amqp.Delivery) {
	outcome := "ack"
	if err := c.handle(ctx, msg.Body); err != nil {
		outcome = "nack"
		c.logger.Error("handle message", "routing_key", msg.RoutingKey, "message_id", msg.MessageId, "err", err)
		// dropped, not requeued
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("nack", "err", err)
		}
	} else if err := msg.Ack(false); err != nil {
		c.logger.Error("ack", "err", err)
	}
	if c.recorder != nil {
		c.recorder.EventConsumed(msg.RoutingKey, outcome)
	}
}
