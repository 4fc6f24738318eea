package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

// Executor is satisfied by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// DBPool adds transaction support to Executor.
type DBPool interface {
	Executor
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ProductSnapshot is the authoritative product state read at order time.
type ProductSnapshot struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	IsDropshipped bool
	SupplierID    *int64
	IsActive      bool
}

type Repository struct {
	pool DBPool
	exec Executor
}

func NewRepository(pool DBPool) *Repository {
	return &Repository{pool: pool, exec: pool}
}

// WithExecutor returns a shallow copy that runs statements on exec (e.g. a transaction).
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{pool: r.pool, exec: exec}
}

func (r *Repository) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, opts)
}

// LockProductsWithTx loads and row-locks the given products in id order.
func (r *Repository) LockProductsWithTx(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]ProductSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, price::text, is_dropshipped, supplier_id, is_active
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]ProductSnapshot, len(ids))
	for rows.Next() {
		var (
			p          ProductSnapshot
			price      string
			supplierID *int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.IsDropshipped, &supplierID, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = db.ParseDecimal(price); err != nil {
			return nil, err
		}
		p.SupplierID = supplierID
		out[p.ID] = p
	}
	return out, rows.Err()
}

func money(d decimal.Decimal) string {
	return pricing.Round(d).StringFixed(2)
}

// InsertWithTx persists o and its items, filling in generated ids and timestamps.
func (r *Repository) InsertWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, shipping_address, shipping_city, shipping_state, shipping_zip,
			subtotal, total, coupon_id, coupon_discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, o.UserID, string(o.Status), o.Address, o.City, o.State, o.Zip,
		money(o.Subtotal), money(o.Total), o.CouponID, money(o.CouponDiscount),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price, is_dropshipped, supplier_id, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, o.ID, it.ProductID, it.Quantity, money(it.Price), it.IsDropshipped, it.SupplierID, string(it.Status),
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

const orderColumns = `id, user_id, status, shipping_address, shipping_city, shipping_state, shipping_zip,
	subtotal::text, total::text, coupon_id, coupon_discount::text, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                         Order
		status                    string
		subtotal, total, discount string
		couponID                  *int64
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.Address, &o.City, &o.State, &o.Zip,
		&subtotal, &total, &couponID, &discount, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.CouponID = couponID

	var err error
	if o.Subtotal, err = db.ParseDecimal(subtotal); err != nil {
		return Order{}, err
	}
	if o.Total, err = db.ParseDecimal(total); err != nil {
		return Order{}, err
	}
	if o.CouponDiscount, err = db.ParseDecimal(discount); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetForUser returns the order only when it belongs to userID; any other
// order is reported as ErrNotFound.
func (r *Repository) GetForUser(ctx context.Context, userID, orderID int64) (Order, error) {
	o, err := scanOrder(r.exec.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}

	items, err := r.itemsFor(ctx, []int64{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []Item{}
	}
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.exec.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	out := []Order{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []Item{}
		}
	}
	return out, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price::text,
			oi.is_dropshipped, oi.supplier_id, oi.status
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(orderIDs))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row, extra ...any) (Item, error) {
	var (
		it         Item
		price      string
		supplierID *int64
		status     string
	)
	dest := append([]any{&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &price,
		&it.IsDropshipped, &supplierID, &status}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Item{}, err
	}
	p, err := db.ParseDecimal(price)
	if err != nil {
		return Item{}, err
	}
	it.Price = p
	it.SupplierID = supplierID
	it.Status = Status(status)
	return it, nil
}

// ListDropshippedBySupplier returns the supplier's dropshipped lines, newest first.
func (r *Repository) ListDropshippedBySupplier(ctx context.Context, supplierID int64) ([]SupplierItem, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price::text,
			oi.is_dropshipped, oi.supplier_id, oi.status,
			o.status, o.shipping_address, o.shipping_city, o.shipping_state, o.shipping_zip, o.created_at
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE oi.supplier_id = $1 AND oi.is_dropshipped = true
		ORDER BY o.created_at DESC, oi.id
	`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list supplier items: %w", err)
	}
	defer rows.Close()

	out := []SupplierItem{}
	for rows.Next() {
		var (
			si          SupplierItem
			orderStatus string
		)
		it, err := scanItem(rows, &orderStatus, &si.Address, &si.City, &si.State, &si.Zip, &si.OrderedAt)
		if err != nil {
			return nil, fmt.Errorf("scan supplier item: %w", err)
		}
		si.Item = it
		si.OrderStatus = Status(orderStatus)
		out = append(out, si)
	}
	return out, rows.Err()
}

func (r *Repository) GetStatus(ctx context.Context, orderID int64) (Status, error) {
	var s string
	if err := r.exec.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get order status: %w", err)
	}
	return Status(s), nil
}

// CompareAndSetStatus moves the order to next only if it is still in from.
func (r *Repository) CompareAndSetStatus(ctx context.Context, orderID int64, from, next Status) (bool, error) {
	tag, err := r.exec.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, orderID, string(from), string(next))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) GetItemStatus(ctx context.Context, itemID int64) (Status, error) {
	var s string
	if err := r.exec.QueryRow(ctx, `SELECT status FROM order_items WHERE id = $1`, itemID).Scan(&s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrItemNotFound
		}
		return "", fmt.Errorf("get item status: %w", err)
	}
	return Status(s), nil
}

func (r *Repository) CompareAndSetItemStatus(ctx context.Context, itemID int64, from, next Status) (bool, error) {
	tag, err := r.exec.Exec(ctx, `
		UPDATE order_items SET status = $3
		WHERE id = $1 AND status = $2
	`, itemID, string(from), string(next))
	if err != nil {
		return false, fmt.Errorf("update item status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) GetOrderItemStatus(ctx context.Context, orderID, itemID int64) (Status, error) {
	var s string
	err := r.exec.QueryRow(ctx,
		`SELECT status FROM order_items WHERE id = $1 AND order_id = $2`, itemID, orderID).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrItemNotFound
		}
		return "", fmt.Errorf("get item status: %w", err)
	}
	return Status(s), nil
}

func (r *Repository) CompareAndSetOrderItemStatus(ctx context.Context, orderID, itemID int64, from, next Status) (bool, error) {
	tag, err := r.exec.Exec(ctx, `
		UPDATE order_items SET status = $4
		WHERE id = $1 AND order_id = $2 AND status = $3
	`, itemID, orderID, string(from), string(next))
	if err != nil {
		return false, fmt.Errorf("update item status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
