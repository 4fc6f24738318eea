package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Shipping struct {
	Address string `json:"shippingAddress"`
	City    string `json:"shippingCity"`
	State   string `json:"shippingState"`
	Zip     string `json:"shippingZip"`
}

type Item struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"orderId"`
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	IsDropshipped bool            `json:"isDropshipped"`
	SupplierID    *int64          `json:"supplierId"`
	Status        Status          `json:"status"`
}

type Order struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Status Status `json:"status"`
	Shipping
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	CouponID       *int64          `json:"couponId"`
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Items          []Item          `json:"items"`
}

// PlaceLine is one submitted line. Price is what the client displayed and is
// only used to detect stale carts.
type PlaceLine struct {
	ProductID int64
	Quantity  int
	Price     decimal.NullDecimal
}

type PlaceRequest struct {
	UserID int64
	Shipping
	Items          []PlaceLine
	CouponID       *int64
	CouponDiscount decimal.NullDecimal
	Total          decimal.NullDecimal
}

// SupplierItem is a dropshipped order line as seen by its supplier.
type SupplierItem struct {
	Item
	OrderStatus Status `json:"orderStatus"`
	Shipping
	OrderedAt time.Time `json:"orderedAt"`
}
