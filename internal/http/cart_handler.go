package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type cartResponse struct {
	cart.Cart
	Summary pricing.Summary `json:"summary"`
	Notices []cart.Notice   `json:"notices"`
}

func newCartResponse(hd *cart.Holder, notices ...cart.Notice) cartResponse {
	if notices == nil {
		notices = []cart.Notice{}
	}
	return cartResponse{Cart: hd.Cart(), Summary: hd.Summary(), Notices: notices}
}

func cartNamespace(id string) string {
	return "cart:" + id
}

// cartID returns the shopper's cart id, issuing a new cookie when the
// request has none or an unusable one.
func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cart.DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) loadHolder(w http.ResponseWriter, r *http.Request) (*cart.Holder, bool) {
	hd := cart.NewHolder(h.carts, cartNamespace(h.cartID(w, r)), h.logger)
	if err := hd.Load(r.Context()); err != nil {
		h.logger.Error("load cart", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return nil, false
	}
	return hd, true
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd))
}

type addCartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// AddCartItem snapshots the product's current name, price and image into
// the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var body addCartItemRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	if body.ProductID <= 0 || body.Quantity < 1 {
		writeFields(w, "Invalid cart item", map[string]string{"quantity": "Quantity must be at least 1"})
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	p, err := h.catalog.GetProduct(ctx, body.ProductID)
	if err != nil || !p.IsActive {
		if err == nil || errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("get product for cart", "product_id", body.ProductID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	notice, err := hd.AddItem(ctx, cart.Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.ImageURL,
		Quantity:  body.Quantity,
	})
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd, notice))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	notices, err := hd.UpdateQuantity(ctx, id, body.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd, notices...))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	notices, err := hd.RemoveItem(ctx, id)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd, notices...))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	if err := hd.ClearCart(ctx); err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd))
}

// ApplyCartCoupon validates the code and holds the coupon on the cart.
func (h *Handler) ApplyCartCoupon(w http.ResponseWriter, r *http.Request) {
	var body couponCodeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	c, err := h.coupons.Validate(ctx, body.Code)
	if err != nil {
		h.writeCouponError(w, err)
		return
	}

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	notice, err := hd.ApplyCoupon(ctx, cart.Coupon{
		ID:              c.ID,
		Code:            c.Code,
		DiscountType:    c.DiscountType,
		DiscountValue:   c.DiscountValue,
		MinimumPurchase: c.MinimumPurchase,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrMinimumNotMet) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("A minimum purchase of $%s is required", c.MinimumPurchase.Decimal.StringFixed(2)))
			return
		}
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd, notice))
}

func (h *Handler) RemoveCartCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()
	r = r.WithContext(ctx)

	hd, ok := h.loadHolder(w, r)
	if !ok {
		return
	}
	notice, err := hd.RemoveCoupon(ctx)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(hd, notice))
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error) {
	if errors.Is(err, cart.ErrInvalidItem) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("update cart", "err", err)
	writeError(w, http.StatusInternalServerError, "Failed to update cart")
}
