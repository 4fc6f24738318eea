package cart

import (
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type Item struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Coupon is the snapshot of a validated coupon held by the cart.
type Coupon struct {
	ID              int64                `json:"id"`
	Code            string               `json:"code"`
	DiscountType    pricing.DiscountType `json:"discountType"`
	DiscountValue   decimal.Decimal      `json:"discountValue"`
	MinimumPurchase decimal.NullDecimal  `json:"minimumPurchase"`
}

func (c *Coupon) Rule() *pricing.Coupon {
	if c == nil {
		return nil
	}
	return &pricing.Coupon{
		DiscountType:    c.DiscountType,
		DiscountValue:   c.DiscountValue,
		MinimumPurchase: c.MinimumPurchase,
	}
}

type Cart struct {
	Items  []Item  `json:"items"`
	Coupon *Coupon `json:"coupon"`
}

func (c Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, UnitPrice: it.Price, Quantity: it.Quantity})
	}
	return lines
}

func (c Cart) Summary() pricing.Summary {
	return pricing.Calculate(c.Lines(), c.Coupon.Rule())
}

func (c Cart) clone() Cart {
	out := Cart{Items: make([]Item, len(c.Items))}
	copy(out.Items, c.Items)
	if c.Coupon != nil {
		cp := *c.Coupon
		out.Coupon = &cp
	}
	return out
}

// Notice is a user-facing confirmation produced by a cart mutation.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
