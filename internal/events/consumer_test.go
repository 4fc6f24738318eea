package events

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
)

type fakeAck struct {
	acked, nacked int
	requeued      bool
}

func (f *fakeAck) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked++
	f.requeued = requeue
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error { return nil }

type fakeRecorder struct{ outcomes []string }

func (f *fakeRecorder) EventConsumed(routingKey, outcome string) {
	f.outcomes = append(f.outcomes, routingKey+":"+outcome)
}

func TestConsumer_DeliverAcksAndNacks(t *testing.T) {
	rec := &fakeRecorder{}
	fail := false
	c := &Consumer{
		handle: func(ctx context.Context, body []byte) error {
			if fail {
				return errors.New("bad event")
			}
			return nil
		},
		logger:   logging.Discard(),
		recorder: rec,
	}

	ack := &fakeAck{}
	c.deliver(context.Background(), amqp.Delivery{Acknowledger: ack, RoutingKey: OrderStatusRoutingKey, Body: []byte(`{}`)})
	require.Equal(t, 1, ack.acked)

	fail = true
	c.deliver(context.Background(), amqp.Delivery{Acknowledger: ack, RoutingKey: OrderStatusRoutingKey, Body: []byte(`{}`)})
	require.Equal(t, 1, ack.nacked)
	require.False(t, ack.requeued)

	require.Equal(t, []string{"order.status.v1:ack", "order.status.v1:nack"}, rec.outcomes)
}
