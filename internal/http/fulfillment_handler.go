package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

func (h *Handler) ListSupplierItems(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	items, err := h.orders.ListSupplierItems(ctx, id)
	if err != nil {
		h.logger.Error("list supplier items", "supplier_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch supplier items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.orders.UpdateStatus)
}

func (h *Handler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, h.orders.UpdateItemStatus)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64, next order.Status) error) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body statusRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	err := apply(ctx, id, order.Status(body.Status))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": body.Status})
	case errors.Is(err, order.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, order.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("update status", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to update status")
	}
}

func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	item, err := h.stock.Get(ctx, id)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("get availability", "product_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type adjustRequest struct {
	ProductID int64 `json:"productId"`
	Available int   `json:"available"`
}

func (h *Handler) AdjustAvailability(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.ProductID <= 0 || req.Available < 0 {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	if err := h.stock.SetAvailable(ctx, req.ProductID, req.Available); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("adjust availability", "product_id", req.ProductID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, req.ProductID); err != nil {
			h.logger.Warn("invalidate product cache", "product_id", req.ProductID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
