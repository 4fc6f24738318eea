package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type Supplier struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	Website      string `json:"website"`
}

type Product struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compareAtPrice"`
	ImageURL       string              `json:"imageUrl"`
	Inventory      int                 `json:"inventory"`
	IsDropshipped  bool                `json:"isDropshipped"`
	IsActive       bool                `json:"isActive"`
	CategoryID     *int64              `json:"categoryId"`
	SupplierID     *int64              `json:"supplierId"`
	CategoryName   *string             `json:"categoryName,omitempty"`
	SupplierName   *string             `json:"supplierName,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

type SpecialOffer struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	DiscountLabel string    `json:"discountLabel"`
	ImageURL      string    `json:"imageUrl"`
	IsActive      bool      `json:"isActive"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortPrice     SortField = "price"
	SortName      SortField = "name"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Filter narrows ListProducts. Zero values mean "no constraint".
type Filter struct {
	CategoryID    *int64
	SupplierID    *int64
	MinPrice      decimal.NullDecimal
	MaxPrice      decimal.NullDecimal
	Search        string
	IsDropshipped *bool

	Page          int
	Limit         int
	SortBy        SortField
	SortDirection string
}

// Normalize applies paging defaults and clamps.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	switch f.SortBy {
	case SortCreatedAt, SortPrice, SortName:
	default:
		f.SortBy = SortCreatedAt
	}
	if f.SortDirection != "asc" {
		f.SortDirection = "desc"
	}
	return f
}

type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
