// Package pricing derives cart subtotals, coupon discounts and totals.
//
// All functions are pure. Amounts are kept at full precision and only rounded
// to cents by Round when displayed or persisted.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	ErrMinimumNotMet = errors.New("minimum purchase not met")
	ErrInvalidLine   = errors.New("invalid line item")
)

// Tolerance is the largest difference between two totals still treated as equal.
var Tolerance = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

type Line struct {
	ProductID int64
	UnitPrice decimal.Decimal
	Quantity  int
}

type Coupon struct {
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	MinimumPurchase decimal.NullDecimal
}

type Summary struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"totalItems"`
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Discount returns the raw discount for subtotal. A fixed discount may exceed
// the subtotal; Total floors the result.
func Discount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	switch c.DiscountType {
	case DiscountPercentage:
		return subtotal.Mul(c.DiscountValue).Div(hundred)
	case DiscountFixed:
		return c.DiscountValue
	default:
		return decimal.Zero
	}
}

func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	t := subtotal.Sub(discount)
	if t.IsNegative() {
		return decimal.Zero
	}
	return t
}

func Calculate(lines []Line, c *Coupon) Summary {
	subtotal := Subtotal(lines)
	discount := Discount(c, subtotal)

	items := 0
	for _, l := range lines {
		items += l.Quantity
	}

	return Summary{
		Subtotal:   subtotal,
		Discount:   discount,
		Total:      Total(subtotal, discount),
		TotalItems: items,
	}
}

// CheckMinimum reports ErrMinimumNotMet when the coupon carries a minimum
// purchase above subtotal.
func CheckMinimum(c *Coupon, subtotal decimal.Decimal) error {
	if c == nil || !c.MinimumPurchase.Valid {
		return nil
	}
	if subtotal.LessThan(c.MinimumPurchase.Decimal) {
		return fmt.Errorf("%w: a minimum purchase of $%s is required", ErrMinimumNotMet, c.MinimumPurchase.Decimal.StringFixed(2))
	}
	return nil
}

func ValidateLines(lines []Line) error {
	for i, l := range lines {
		if l.Quantity < 1 {
			return fmt.Errorf("%w: line %d quantity must be at least 1", ErrInvalidLine, i)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d price must not be negative", ErrInvalidLine, i)
		}
	}
	return nil
}

// ParsePrice parses a decimal price string as submitted by clients.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q is not a number", ErrInvalidLine, s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q is negative", ErrInvalidLine, s)
	}
	return d, nil
}

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Matches reports whether two amounts agree within Tolerance.
func Matches(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
