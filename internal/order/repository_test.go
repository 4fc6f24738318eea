package order

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var (
	orderCols = []string{"id", "user_id", "status", "shipping_address", "shipping_city", "shipping_state", "shipping_zip",
		"subtotal", "total", "coupon_id", "coupon_discount", "created_at", "updated_at"}
	itemCols = []string{"id", "order_id", "product_id", "name", "quantity", "price", "is_dropshipped", "supplier_id", "status"}
)

func TestRepository_GetForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM orders WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(10), int64(42)).
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(
			int64(10), int64(42), "shipped", "1 Main Street", "Springfield", "IL", "62701",
			"20.00", "18.00", int64Ptr(7), "2.00", now, now,
		))
	mock.ExpectQuery(`FROM order_items oi JOIN products p ON p.id = oi.product_id WHERE oi.order_id = ANY\(\$1\)`).
		WithArgs([]int64{10}).
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow(int64(1), int64(10), int64(3), "Widget", 2, "10.00", false, nil, "shipped"))

	o, err := NewRepository(mock).GetForUser(context.Background(), 42, 10)
	require.NoError(t, err)
	require.Equal(t, StatusShipped, o.Status)
	require.Equal(t, "18.00", o.Total.StringFixed(2))
	require.Equal(t, int64(7), *o.CouponID)
	require.Len(t, o.Items, 1)
	require.Equal(t, "Widget", o.Items[0].ProductName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetForUser_OtherUsersOrderIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM orders WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(10), int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).GetForUser(context.Background(), 99, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM orders WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow(int64(11), int64(42), "pending", "a street", "city", "ST", "12345", "5.00", "5.00", nil, "0.00", now, now).
			AddRow(int64(10), int64(42), "delivered", "a street", "city", "ST", "12345", "9.00", "9.00", nil, "0.00", now, now))
	mock.ExpectQuery(`WHERE oi.order_id = ANY\(\$1\)`).
		WithArgs([]int64{11, 10}).
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow(int64(1), int64(10), int64(3), "Widget", 1, "9.00", false, nil, "delivered").
			AddRow(int64(2), int64(11), int64(4), "Gadget", 1, "5.00", true, int64Ptr(2), "pending"))

	orders, err := NewRepository(mock).ListByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "Gadget", orders[0].Items[0].ProductName)
	require.Nil(t, orders[0].CouponID)
	require.Equal(t, "Widget", orders[1].Items[0].ProductName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUser_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM orders WHERE user_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(orderCols))

	orders, err := NewRepository(mock).ListByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestRepository_ListDropshippedBySupplier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	cols := append(append([]string{}, itemCols...), "order_status", "shipping_address", "shipping_city", "shipping_state", "shipping_zip", "created_at")
	mock.ExpectQuery(`WHERE oi.supplier_id = \$1 AND oi.is_dropshipped = true`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(2), int64(11), int64(4), "Gadget", 1, "5.00", true, int64Ptr(2), "pending",
			"processing", "1 Main Street", "Springfield", "IL", "62701", now,
		))

	items, err := NewRepository(mock).ListDropshippedBySupplier(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, StatusProcessing, items[0].OrderStatus)
	require.Equal(t, "Springfield", items[0].City)
	require.Equal(t, now, items[0].OrderedAt)
}

func TestRepository_CompareAndSetStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE orders SET status = \$3, updated_at = now\(\) WHERE id = \$1 AND status = \$2`).
		WithArgs(int64(1), "pending", "processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE orders SET status = \$3`).
		WithArgs(int64(1), "pending", "processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepository(mock)
	ok, err := repo.CompareAndSetStatus(context.Background(), 1, StatusPending, StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.CompareAndSetStatus(context.Background(), 1, StatusPending, StatusProcessing)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRepository_WithExecutorUsesTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM order_items WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("shipped"))
	mock.ExpectCommit()

	ctx := context.Background()
	repo := NewRepository(mock)
	tx, err := repo.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)

	st, err := repo.WithExecutor(tx).GetItemStatus(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, StatusShipped, st)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_OrderItemStatusIsScopedToOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT status FROM order_items WHERE id = \$1 AND order_id = \$2`).
		WithArgs(int64(77), int64(10)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`UPDATE order_items SET status = \$4 WHERE id = \$1 AND order_id = \$2 AND status = \$3`).
		WithArgs(int64(77), int64(11), "pending", "processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := context.Background()
	repo := NewRepository(mock)

	_, err = repo.GetOrderItemStatus(ctx, 10, 77)
	require.ErrorIs(t, err, ErrItemNotFound)

	ok, err := repo.CompareAndSetOrderItemStatus(ctx, 11, 77, StatusPending, StatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
