package httpapi

import (
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/coupon"
)

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()

	cs, err := h.coupons.ListActive(ctx)
	if err != nil {
		h.logger.Error("list coupons", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch coupons")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type couponCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var body couponCodeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	c, err := h.coupons.Validate(ctx, body.Code)
	if err != nil {
		h.writeCouponError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// writeCouponError maps lookup failures shared by validation and the cart.
func (h *Handler) writeCouponError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coupon.ErrCodeRequired):
		writeError(w, http.StatusBadRequest, "Coupon code is required")
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, "Invalid coupon code")
	case errors.Is(err, coupon.ErrUsageLimitReached):
		writeError(w, http.StatusBadRequest, "Coupon usage limit reached")
	default:
		h.logger.Error("validate coupon", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to validate coupon")
	}
}
