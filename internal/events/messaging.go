package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange         = "ecommerce.events"
	OrderPlacedRoutingKey  = "order.placed.v1"
	OrderStatusRoutingKey  = "order.status.v1"
	serviceName            = "storefront-go"
	orderStatusConsumerTag = serviceName + ".order-status"
)

// OrderStatusQueue is the durable queue the storefront binds to fulfillment updates.
var OrderStatusQueue = serviceQueue(OrderStatusRoutingKey)

func serviceQueue(routingKey string) string {
	return serviceName + "." + routingKey
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

func declareBoundQueue(ch *amqp.Channel, queue, routingKey string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}
