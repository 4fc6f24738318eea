package coupon

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type Coupon struct {
	ID              int64                `json:"id"`
	Code            string               `json:"code"`
	DiscountType    pricing.DiscountType `json:"discountType"`
	DiscountValue   decimal.Decimal      `json:"discountValue"`
	MinimumPurchase decimal.NullDecimal  `json:"minimumPurchase"`
	UsageLimit      *int                 `json:"usageLimit"`
	UsageCount      int                  `json:"usageCount"`
	IsActive        bool                 `json:"isActive"`
	StartsAt        time.Time            `json:"startsAt"`
	ExpiresAt       time.Time            `json:"expiresAt"`
}

func (c Coupon) Rule() *pricing.Coupon {
	return &pricing.Coupon{
		DiscountType:    c.DiscountType,
		DiscountValue:   c.DiscountValue,
		MinimumPurchase: c.MinimumPurchase,
	}
}

// ActiveAt reports whether the coupon is enabled and now lies inside its window.
func (c Coupon) ActiveAt(now time.Time) bool {
	return c.IsActive && !now.Before(c.StartsAt) && !now.After(c.ExpiresAt)
}

func (c Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}
