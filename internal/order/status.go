package order

import (
	"context"
	"fmt"
)

// StatusStore reads and conditionally writes order and item statuses.
// *Repository implements it, also when bound to a transaction.
type StatusStore interface {
	GetStatus(ctx context.Context, orderID int64) (Status, error)
	CompareAndSetStatus(ctx context.Context, orderID int64, from, next Status) (bool, error)
	GetItemStatus(ctx context.Context, itemID int64) (Status, error)
	CompareAndSetItemStatus(ctx context.Context, itemID int64, from, next Status) (bool, error)
	GetOrderItemStatus(ctx context.Context, orderID, itemID int64) (Status, error)
	CompareAndSetOrderItemStatus(ctx context.Context, orderID, itemID int64, from, next Status) (bool, error)
}

// TransitionOrder applies next if the transition table allows it. Setting
// the current status again is a no-op.
func TransitionOrder(ctx context.Context, store StatusStore, orderID int64, next Status) error {
	return transition(next,
		func() (Status, error) { return store.GetStatus(ctx, orderID) },
		func(from Status) (bool, error) { return store.CompareAndSetStatus(ctx, orderID, from, next) },
		fmt.Sprintf("order %d", orderID))
}

func TransitionItem(ctx context.Context, store StatusStore, itemID int64, next Status) error {
	return transition(next,
		func() (Status, error) { return store.GetItemStatus(ctx, itemID) },
		func(from Status) (bool, error) { return store.CompareAndSetItemStatus(ctx, itemID, from, next) },
		fmt.Sprintf("item %d", itemID))
}

// TransitionOrderItem is TransitionItem restricted to the lines of orderID.
// An item that belongs to another order is reported as ErrItemNotFound.
func TransitionOrderItem(ctx context.Context, store StatusStore, orderID, itemID int64, next Status) error {
	return transition(next,
		func() (Status, error) { return store.GetOrderItemStatus(ctx, orderID, itemID) },
		func(from Status) (bool, error) {
			return store.CompareAndSetOrderItemStatus(ctx, orderID, itemID, from, next)
		},
		fmt.Sprintf("item %d of order %d", itemID, orderID))
}

func transition(next Status, get func() (Status, error), set func(from Status) (bool, error), what string) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	cur, err := get()
	if err != nil {
		return err
	}
	if cur == next {
		return nil
	}
	if !cur.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
	}
	ok, err := set(cur)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, what)
	}
	return nil
}
