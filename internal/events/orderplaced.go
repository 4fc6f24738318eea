package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const (
	EventTypeOrderPlaced = "order.placed"
	orderPlacedSchema    = "ecommerce.order.placed.v1"
)

type OrderPlacedItem struct {
	ProductID     int64  `json:"productId"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	IsDropshipped bool   `json:"isDropshipped"`
	SupplierID    *int64 `json:"supplierId,omitempty"`
}

type OrderPlacedPayload struct {
	OrderID        int64             `json:"orderId"`
	UserID         int64             `json:"userId"`
	Subtotal       string            `json:"subtotal"`
	CouponID       *int64            `json:"couponId,omitempty"`
	CouponDiscount string            `json:"couponDiscount"`
	Total          string            `json:"total"`
	ShippingZip    string            `json:"shippingZip"`
	Items          []OrderPlacedItem `json:"items"`
	PlacedAt       time.Time         `json:"placedAt"`
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type SequenceAllocator interface {
	Next(ctx context.Context, partitionKey string) (int64, error)
}

// Publisher emits order.placed.v1 envelopes. It satisfies order.Publisher.
type Publisher struct {
	mu       sync.Mutex
	ch       amqpChannel
	seq      SequenceAllocator
	producer string
	timeout  time.Duration
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq SequenceAllocator) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq), nil
}

func newPublisher(ch amqpChannel, seq SequenceAllocator) *Publisher {
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: serviceName,
		timeout:  3 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func orderPartition(orderID int64) string {
	return "order-" + strconv.FormatInt(orderID, 10)
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o order.Order) error {
	payload := OrderPlacedPayload{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Subtotal:       o.Subtotal.StringFixed(2),
		CouponID:       o.CouponID,
		CouponDiscount: o.CouponDiscount.StringFixed(2),
		Total:          o.Total.StringFixed(2),
		ShippingZip:    o.Zip,
		PlacedAt:       o.CreatedAt.UTC(),
		Items:          make([]OrderPlacedItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			Price:         it.Price.StringFixed(2),
			IsDropshipped: it.IsDropshipped,
			SupplierID:    it.SupplierID,
		})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced payload: %w", err)
	}

	partition := orderPartition(o.ID)
	seq, err := p.seq.Next(ctx, partition)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := Envelope{
		EventName:     EventTypeOrderPlaced,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: correlationIDFrom(ctx),
		Producer:      p.producer,
		PartitionKey:  partition,
		Sequence:      seq,
		OccurredAt:    p.now(),
		Schema:        orderPlacedSchema,
		Payload:       raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, env, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, env Envelope, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Type:          env.EventName,
			Timestamp:     env.OccurredAt,
			Body:          body,
		},
	)
}

type correlationKey struct{}

// WithCorrelationID tags ctx so events published under it carry id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
