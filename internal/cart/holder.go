package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

var ErrInvalidItem = errors.New("invalid cart item")

// Holder owns one shopper's cart. State is loaded explicitly with Load and
// every mutation is written to Storage before the in-memory copy changes.
// A Holder is not safe for concurrent use.
type Holder struct {
	store     Storage
	cartKey   string
	couponKey string
	logger    *slog.Logger

	cart Cart
}

func NewHolder(store Storage, namespace string, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		store:     store,
		cartKey:   namespace + ":cart",
		couponKey: namespace + ":coupon",
		logger:    logger,
		cart:      Cart{Items: []Item{}},
	}
}

// Load restores the cart and coupon. Unreadable stored data is discarded and
// the cart starts empty; only storage failures are returned.
func (h *Holder) Load(ctx context.Context) error {
	next := Cart{Items: []Item{}}

	raw, ok, err := h.store.Get(ctx, h.cartKey)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if ok {
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil || !validItems(items) {
			h.logger.Warn("discarding corrupt cart data", "key", h.cartKey, "err", err)
		} else {
			next.Items = items
		}
	}

	raw, ok, err = h.store.Get(ctx, h.couponKey)
	if err != nil {
		return fmt.Errorf("load coupon: %w", err)
	}
	if ok {
		var c Coupon
		if err := json.Unmarshal(raw, &c); err != nil || !c.DiscountType.Valid() {
			h.logger.Warn("discarding corrupt coupon data", "key", h.couponKey, "err", err)
		} else {
			next.Coupon = &c
		}
	}

	// stored items may no longer meet the coupon minimum
	if c := next.Coupon; len(revokeIfBelowMinimum(&next)) > 0 {
		h.logger.Info("coupon removed on load", "key", h.couponKey, "code", c.Code)
		if err := h.save(ctx, next); err != nil {
			h.logger.Warn("persist coupon removal", "key", h.couponKey, "err", err)
		}
	}

	h.cart = next
	return nil
}

func validItems(items []Item) bool {
	for _, it := range items {
		if it.Quantity < 1 || it.Price.IsNegative() {
			return false
		}
	}
	return true
}

// Cart returns a copy of the current state.
func (h *Holder) Cart() Cart {
	return h.cart.clone()
}

func (h *Holder) Summary() pricing.Summary {
	return h.cart.Summary()
}

func (h *Holder) AddItem(ctx context.Context, item Item) (Notice, error) {
	if item.Quantity < 1 {
		return Notice{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidItem)
	}
	if item.Price.IsNegative() {
		return Notice{}, fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}

	next := h.cart.clone()
	var notice Notice
	merged := false
	for i := range next.Items {
		if next.Items[i].ProductID == item.ProductID {
			next.Items[i].Quantity += item.Quantity
			notice = Notice{
				Title:   "Cart updated",
				Message: fmt.Sprintf("%s quantity increased to %d", next.Items[i].Name, next.Items[i].Quantity),
			}
			merged = true
			break
		}
	}
	if !merged {
		next.Items = append(next.Items, item)
		notice = Notice{
			Title:   "Item added to cart",
			Message: fmt.Sprintf("%s has been added to your cart", item.Name),
		}
	}

	if err := h.save(ctx, next); err != nil {
		return Notice{}, err
	}
	return notice, nil
}

// UpdateQuantity sets the quantity exactly. q <= 0 removes the item.
func (h *Holder) UpdateQuantity(ctx context.Context, productID int64, q int) ([]Notice, error) {
	if q <= 0 {
		return h.RemoveItem(ctx, productID)
	}

	idx := h.indexOf(productID)
	if idx < 0 {
		return nil, nil
	}

	next := h.cart.clone()
	next.Items[idx].Quantity = q

	notices := revokeIfBelowMinimum(&next)
	if err := h.save(ctx, next); err != nil {
		return nil, err
	}
	return notices, nil
}

// RemoveItem is a no-op when the product is not in the cart.
func (h *Holder) RemoveItem(ctx context.Context, productID int64) ([]Notice, error) {
	idx := h.indexOf(productID)
	if idx < 0 {
		return nil, nil
	}

	next := h.cart.clone()
	removed := next.Items[idx]
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)

	notices := []Notice{{
		Title:   "Item removed",
		Message: fmt.Sprintf("%s has been removed from your cart", removed.Name),
	}}
	notices = append(notices, revokeIfBelowMinimum(&next)...)

	if err := h.save(ctx, next); err != nil {
		return nil, err
	}
	return notices, nil
}

// ClearCart drops all items and the coupon together.
func (h *Holder) ClearCart(ctx context.Context) error {
	if err := h.store.Delete(ctx, h.cartKey, h.couponKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	h.cart = Cart{Items: []Item{}}
	return nil
}

// ApplyCoupon holds c on the cart, replacing any previous coupon. A coupon
// whose minimum purchase exceeds the subtotal is rejected with
// pricing.ErrMinimumNotMet and the cart is left unchanged.
func (h *Holder) ApplyCoupon(ctx context.Context, c Coupon) (Notice, error) {
	if !c.DiscountType.Valid() {
		return Notice{}, fmt.Errorf("%w: unknown discount type %q", ErrInvalidItem, c.DiscountType)
	}
	subtotal := pricing.Subtotal(h.cart.Lines())
	if err := pricing.CheckMinimum(c.Rule(), subtotal); err != nil {
		return Notice{}, err
	}

	next := h.cart.clone()
	prev := next.Coupon
	next.Coupon = &c

	notice := Notice{
		Title:   "Coupon applied",
		Message: fmt.Sprintf("%s has been applied to your cart", c.Code),
	}
	if prev != nil && prev.Code != c.Code {
		notice.Message = fmt.Sprintf("%s has replaced %s on your cart", c.Code, prev.Code)
	}

	if err := h.save(ctx, next); err != nil {
		return Notice{}, err
	}
	return notice, nil
}

func (h *Holder) RemoveCoupon(ctx context.Context) (Notice, error) {
	next := h.cart.clone()
	next.Coupon = nil
	if err := h.save(ctx, next); err != nil {
		return Notice{}, err
	}
	return couponRemoved, nil
}

var couponRemoved = Notice{
	Title:   "Coupon removed",
	Message: "The coupon has been removed from your cart",
}

// revokeIfBelowMinimum drops the held coupon once the subtotal falls under
// its minimum purchase.
func revokeIfBelowMinimum(c *Cart) []Notice {
	if c.Coupon == nil {
		return nil
	}
	if err := pricing.CheckMinimum(c.Coupon.Rule(), pricing.Subtotal(c.Lines())); err == nil {
		return nil
	}
	c.Coupon = nil
	return []Notice{couponRemoved}
}

func (h *Holder) indexOf(productID int64) int {
	for i, it := range h.cart.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (h *Holder) save(ctx context.Context, next Cart) error {
	items, err := json.Marshal(next.Items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	set := map[string][]byte{h.cartKey: items}
	var del []string
	if next.Coupon == nil {
		del = append(del, h.couponKey)
	} else {
		raw, err := json.Marshal(next.Coupon)
		if err != nil {
			return fmt.Errorf("encode coupon: %w", err)
		}
		set[h.couponKey] = raw
	}

	if err := h.store.Write(ctx, set, del...); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	h.cart = next
	return nil
}
