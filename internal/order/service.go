package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type CouponStore interface {
	GetByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (coupon.Coupon, error)
	RedeemWithTx(ctx context.Context, tx pgx.Tx, id int64) error
}

type StockReserver interface {
	ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []inventory.Line) (inventory.ReserveResult, error)
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, o Order) error
}

// ProductCache is told about products whose stock changed.
type ProductCache interface {
	Invalidate(ctx context.Context, ids ...int64) error
}

type Metrics interface {
	OrderPlaced(total decimal.Decimal)
	OrderRejected(reason string)
}

type Deps struct {
	Orders    *Repository
	Coupons   CouponStore
	Stock     StockReserver
	Publisher Publisher
	Cache     ProductCache
	Metrics   Metrics
	Logger    *slog.Logger
}

type Service struct {
	orders    *Repository
	coupons   CouponStore
	stock     StockReserver
	publisher Publisher
	cache     ProductCache
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orders:    d.Orders,
		coupons:   d.Coupons,
		stock:     d.Stock,
		publisher: d.Publisher,
		cache:     d.Cache,
		metrics:   d.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate checks the submission before anything touches the database.
func Validate(req PlaceRequest) error {
	if req.UserID == 0 {
		return ErrUnauthenticated
	}

	fields := map[string]string{}
	if len(req.Items) == 0 {
		fields["items"] = "Cart is empty"
	}
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			fields[fmt.Sprintf("items[%d].productId", i)] = "Unknown product"
		}
		if it.Quantity < 1 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "Quantity must be at least 1"
		}
		if it.Price.Valid && it.Price.Decimal.IsNegative() {
			fields[fmt.Sprintf("items[%d].price", i)] = "Price must not be negative"
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Address)) < 5 {
		fields["shippingAddress"] = "Address must be at least 5 characters"
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.City)) < 2 {
		fields["shippingCity"] = "City must be at least 2 characters"
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.State)) < 2 {
		fields["shippingState"] = "State must be at least 2 characters"
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Zip)) < 5 {
		fields["shippingZip"] = "Zip code must be at least 5 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(in []PlaceLine) []PlaceLine {
	out := make([]PlaceLine, 0, len(in))
	idx := map[int64]int{}
	for _, l := range in {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Place recomputes the order from current product prices and coupon rules and
// persists it, its items, the stock decrements and the coupon redemption in
// one transaction. Nothing is written when any step fails.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (Order, error) {
	o, err := s.place(ctx, req)
	if err != nil {
		s.recordRejection(err)
		return Order{}, err
	}

	if s.metrics != nil {
		s.metrics.OrderPlaced(o.Total)
	}

	if s.cache != nil {
		ids := make([]int64, 0, len(o.Items))
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
		if err := s.cache.Invalidate(ctx, ids...); err != nil {
			s.logger.Warn("invalidate product cache", "order_id", o.ID, "err", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, o); err != nil {
			s.logger.Error("publish order placed", "order_id", o.ID, "err", err)
		}
	}

	s.logger.Info("order placed", "order_id", o.ID, "user_id", o.UserID, "total", o.Total.StringFixed(2), "items", len(o.Items))
	return o, nil
}

func (s *Service) place(ctx context.Context, req PlaceRequest) (Order, error) {
	if err := Validate(req); err != nil {
		return Order{}, err
	}
	lines := mergeLines(req.Items)

	tx, err := s.orders.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.orders.LockProductsWithTx(ctx, tx, ids)
	if err != nil {
		return Order{}, err
	}

	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return Order{}, fmt.Errorf("%w: %d", ErrProductNotFound, l.ProductID)
		}
		if l.Price.Valid && !pricing.Matches(l.Price.Decimal, p.Price) {
			return Order{}, fmt.Errorf("%w: price of product %d is now %s", ErrTotalMismatch, p.ID, p.Price.StringFixed(2))
		}
		priced = append(priced, pricing.Line{ProductID: p.ID, UnitPrice: p.Price, Quantity: l.Quantity})
	}
	subtotal := pricing.Subtotal(priced)

	var rule *pricing.Coupon
	if req.CouponID != nil {
		c, err := s.coupons.GetByIDWithTx(ctx, tx, *req.CouponID)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				return Order{}, ErrCouponInvalid
			}
			return Order{}, err
		}
		if !c.ActiveAt(s.now()) {
			return Order{}, ErrCouponInvalid
		}
		if c.Exhausted() {
			return Order{}, ErrCouponExhausted
		}
		rule = c.Rule()
		if err := pricing.CheckMinimum(rule, subtotal); err != nil {
			return Order{}, err
		}
	}

	discount := pricing.Discount(rule, subtotal)
	total := pricing.Total(subtotal, discount)

	if req.CouponDiscount.Valid && !pricing.Matches(req.CouponDiscount.Decimal, discount) {
		return Order{}, fmt.Errorf("%w: coupon discount is %s", ErrTotalMismatch, pricing.Round(discount).StringFixed(2))
	}
	if req.Total.Valid && !pricing.Matches(req.Total.Decimal, total) {
		return Order{}, fmt.Errorf("%w: total is %s", ErrTotalMismatch, pricing.Round(total).StringFixed(2))
	}

	o := Order{
		UserID: req.UserID,
		Status: StatusPending,
		Shipping: Shipping{
			Address: strings.TrimSpace(req.Address),
			City:    strings.TrimSpace(req.City),
			State:   strings.TrimSpace(req.State),
			Zip:     strings.TrimSpace(req.Zip),
		},
		Subtotal:       pricing.Round(subtotal),
		Total:          pricing.Round(total),
		CouponID:       req.CouponID,
		CouponDiscount: pricing.Round(discount),
	}

	var stockLines []inventory.Line
	for _, l := range lines {
		p := products[l.ProductID]
		o.Items = append(o.Items, Item{
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      l.Quantity,
			Price:         p.Price,
			IsDropshipped: p.IsDropshipped,
			SupplierID:    p.SupplierID,
			Status:        StatusPending,
		})
		if !p.IsDropshipped {
			stockLines = append(stockLines, inventory.Line{ProductID: p.ID, Quantity: l.Quantity})
		}
	}

	if err := s.orders.InsertWithTx(ctx, tx, &o); err != nil {
		return Order{}, err
	}

	if len(stockLines) > 0 {
		res, err := s.stock.ReserveWithTx(ctx, tx, stockLines)
		if err != nil {
			return Order{}, err
		}
		if len(res.Depleted) > 0 {
			return Order{}, &StockError{Depleted: res.Depleted}
		}
	}

	if req.CouponID != nil {
		if err := s.coupons.RedeemWithTx(ctx, tx, *req.CouponID); err != nil {
			if errors.Is(err, coupon.ErrUsageLimitReached) {
				return Order{}, ErrCouponExhausted
			}
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order: %w", err)
	}
	return o, nil
}

func (s *Service) recordRejection(err error) {
	if s.metrics == nil {
		return
	}
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		s.metrics.OrderRejected("validation")
	case errors.Is(err, ErrInsufficientStock):
		s.metrics.OrderRejected("stock")
	case errors.Is(err, ErrCouponExhausted), errors.Is(err, ErrCouponInvalid), errors.Is(err, pricing.ErrMinimumNotMet):
		s.metrics.OrderRejected("coupon")
	case errors.Is(err, ErrTotalMismatch):
		s.metrics.OrderRejected("mismatch")
	case errors.Is(err, ErrProductNotFound):
		s.metrics.OrderRejected("product")
	case errors.Is(err, ErrUnauthenticated):
		s.metrics.OrderRejected("auth")
	default:
		s.metrics.OrderRejected("error")
	}
}

func (s *Service) Get(ctx context.Context, userID, orderID int64) (Order, error) {
	if userID == 0 {
		return Order{}, ErrUnauthenticated
	}
	return s.orders.GetForUser(ctx, userID, orderID)
}

func (s *Service) List(ctx context.Context, userID int64) ([]Order, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) ListSupplierItems(ctx context.Context, supplierID int64) ([]SupplierItem, error) {
	return s.orders.ListDropshippedBySupplier(ctx, supplierID)
}

// UpdateStatus moves an order along the fulfillment lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, next Status) error {
	return TransitionOrder(ctx, s.orders, orderID, next)
}

func (s *Service) UpdateItemStatus(ctx context.Context, itemID int64, next Status) error {
	return TransitionItem(ctx, s.orders, itemID, next)
}
