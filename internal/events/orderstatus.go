package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const (
	EventTypeOrderStatus    = "order.status"
	orderStatusConsumerName = "storefront-order-status"
)

// OrderStatusPayload is a fulfillment update. When ItemID is set only that
// line moves, otherwise the whole order does.
type OrderStatusPayload struct {
	OrderID int64  `json:"orderId"`
	ItemID  *int64 `json:"itemId,omitempty"`
	Status  string `json:"status"`
}

// StatusTx is what the handler needs from the order repository.
type StatusTx interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	WithExecutor(exec order.Executor) *order.Repository
}

type HandlerFunc func(ctx context.Context, body []byte) error

// OrderStatusHandler applies order.status.v1 updates. The dedup claim and the
// status change share one transaction, so a redelivered event is skipped and
// a failed update leaves the checkpoint where it was.
//
// Updates that can never apply (unknown order, illegal transition) are logged
// and acknowledged; returning an error NACKs the delivery.
func OrderStatusHandler(orders StatusTx, checkpoint *dedup.Checkpoint, logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		env, err := parseEnvelope(body)
		if err != nil {
			return err
		}
		if err := env.Validate(EventTypeOrderStatus, 1); err != nil {
			return err
		}

		var p OrderStatusPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("decode OrderStatus payload: %w", err)
		}
		if p.OrderID <= 0 {
			return errors.New("missing orderId")
		}
		next := order.Status(p.Status)
		if !next.Valid() {
			return fmt.Errorf("%w: %q", order.ErrInvalidStatus, p.Status)
		}

		log := logger.With("event_id", env.EventID, "order_id", p.OrderID, "partition", env.PartitionKey, "seq", env.Sequence)

		tx, err := orders.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if env.Sequence > 0 {
			fresh, err := checkpoint.WithExecutor(tx).Claim(ctx, orderStatusConsumerName, env.PartitionKey, env.Sequence)
			if err != nil {
				return err
			}
			if !fresh {
				log.Info("skip duplicate order status event")
				return nil
			}
		}

		store := orders.WithExecutor(tx)
		if p.ItemID != nil {
			err = order.TransitionOrderItem(ctx, store, p.OrderID, *p.ItemID, next)
		} else {
			err = order.TransitionOrder(ctx, store, p.OrderID, next)
		}
		applied := true
		if err != nil {
			if !errors.Is(err, order.ErrNotFound) && !errors.Is(err, order.ErrItemNotFound) && !errors.Is(err, order.ErrInvalidTransition) {
				return err
			}
			applied = false
			log.Warn("order status update not applied", "status", p.Status, "item_id", p.ItemID, "err", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit order status: %w", err)
		}
		if applied {
			log.Info("order status applied", "status", p.Status)
		}
		return nil
	}
}
