package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrItemNotFound      = errors.New("order item not found")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCouponInvalid     = errors.New("invalid coupon")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
	ErrTotalMismatch     = errors.New("submitted totals do not match current prices")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StockError lists the lines that could not be reserved.
type StockError struct {
	Depleted []inventory.DepletedLine
}

func (e *StockError) Error() string {
	ids := make([]string, 0, len(e.Depleted))
	for _, d := range e.Depleted {
		ids = append(ids, fmt.Sprintf("%d (requested %d, available %d)", d.ProductID, d.Requested, d.Available))
	}
	return "insufficient stock for products " + strings.Join(ids, ", ")
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
