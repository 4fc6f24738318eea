package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type placeOrderLine struct {
	ProductID int64               `json:"productId"`
	Quantity  int                 `json:"quantity"`
	Price     decimal.NullDecimal `json:"price"`
}

// placeOrderRequest mirrors the checkout form. When Items is empty the
// order is built from the shopper's server-side cart.
type placeOrderRequest struct {
	Items []placeOrderLine `json:"items"`
	order.Shipping
	CouponID       *int64              `json:"couponId"`
	CouponDiscount decimal.NullDecimal `json:"couponDiscount"`
	Total          decimal.NullDecimal `json:"total"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var body placeOrderRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	req := order.PlaceRequest{
		UserID:         u.ID,
		Shipping:       body.Shipping,
		CouponID:       body.CouponID,
		CouponDiscount: body.CouponDiscount,
		Total:          body.Total,
	}
	for _, l := range body.Items {
		req.Items = append(req.Items, order.PlaceLine{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.Price})
	}

	hd := h.existingHolder(r)
	if hd != nil {
		if err := hd.Load(ctx); err != nil {
			h.logger.Error("load cart for checkout", "user_id", u.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}
		if len(req.Items) == 0 {
			fillFromCart(&req, hd.Cart())
		}
	}

	var release func()
	if key := r.Header.Get(HeaderIdempotencyKey); key != "" && h.idem != nil {
		scope := "order:" + strconv.FormatInt(u.ID, 10)
		if err := h.idem.Acquire(ctx, scope, key); err != nil {
			if errors.Is(err, idempotency.ErrDuplicate) {
				writeError(w, http.StatusConflict, "This order has already been submitted")
				return
			}
			h.logger.Error("idempotency acquire", "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to create order")
			return
		}
		release = func() {
			if err := h.idem.Release(r.Context(), scope, key); err != nil {
				h.logger.Warn("idempotency release", "err", err)
			}
		}
	}

	o, err := h.orders.Place(ctx, req)
	if err != nil {
		if release != nil {
			release()
		}
		h.writeOrderError(w, err)
		return
	}

	if hd != nil {
		if err := hd.ClearCart(ctx); err != nil {
			h.logger.Warn("clear cart after order", "order_id", o.ID, "err", err)
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

// existingHolder returns the shopper's cart without issuing a new cookie.
func (h *Handler) existingHolder(r *http.Request) *cart.Holder {
	c, err := r.Cookie(cartCookie)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return nil
	}
	return cart.NewHolder(h.carts, cartNamespace(id.String()), h.logger)
}

func fillFromCart(req *order.PlaceRequest, c cart.Cart) {
	for _, it := range c.Items {
		req.Items = append(req.Items, order.PlaceLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     decimal.NewNullDecimal(it.Price),
		})
	}
	sum := c.Summary()
	if c.Coupon != nil {
		id := c.Coupon.ID
		req.CouponID = &id
		req.CouponDiscount = decimal.NewNullDecimal(pricing.Round(sum.Discount))
	}
	req.Total = decimal.NewNullDecimal(pricing.Round(sum.Total))
}

type stockErrorResponse struct {
	Error    string `json:"error"`
	Depleted any    `json:"depleted"`
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	var (
		verr  *order.ValidationError
		stock *order.StockError
	)
	switch {
	case errors.As(err, &verr):
		writeFields(w, "Invalid order", verr.Fields)
	case errors.Is(err, order.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &stock):
		writeJSON(w, http.StatusConflict, stockErrorResponse{Error: "Insufficient stock", Depleted: stock.Depleted})
	case errors.Is(err, order.ErrProductNotFound):
		writeError(w, http.StatusUnprocessableEntity, "One or more products are no longer available")
	case errors.Is(err, order.ErrCouponInvalid):
		writeError(w, http.StatusUnprocessableEntity, "Invalid coupon code")
	case errors.Is(err, order.ErrCouponExhausted):
		writeError(w, http.StatusConflict, "Coupon usage limit reached")
	case errors.Is(err, pricing.ErrMinimumNotMet):
		writeError(w, http.StatusUnprocessableEntity, "Order does not meet the coupon's minimum purchase")
	case errors.Is(err, order.ErrTotalMismatch):
		writeError(w, http.StatusConflict, "Prices have changed, please review your cart")
	default:
		h.logger.Error("place order", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order")
	}
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	ctx, cancel := h.timeout(r)
	defer cancel()

	orders, err := h.orders.List(ctx, u.ID)
	if err != nil {
		h.logger.Error("list orders", "user_id", u.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	o, err := h.orders.Get(ctx, u.ID, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("get order", "order_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}
