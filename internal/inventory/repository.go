package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID int64) (StockItem, error) {
	item := StockItem{ProductID: productID}
	err := r.pool.QueryRow(ctx, `SELECT inventory, is_dropshipped FROM products WHERE id=$1`, productID).
		Scan(&item.Available, &item.IsDropshipped)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

func (r *PostgresRepository) SetAvailable(ctx context.Context, productID int64, available int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET inventory=$2, updated_at=now()
		WHERE id=$1
	`, productID, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveWithTx applies a conditional decrement per line. A line whose stock
// is short is reported in Depleted and the caller must roll back tx.
func (r *PostgresRepository) ReserveWithTx(ctx context.Context, tx pgx.Tx, lines []Line) (ReserveResult, error) {
	res := ReserveResult{}

	for _, line := range lines {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET inventory = inventory - $2, updated_at=now()
			WHERE id=$1 AND inventory >= $2
		`, line.ProductID, line.Quantity)
		if err != nil {
			return res, fmt.Errorf("decrement inventory for product %d: %w", line.ProductID, err)
		}

		if tag.RowsAffected() == 1 {
			res.Reserved = append(res.Reserved, line)
			continue
		}

		var available int
		err = tx.QueryRow(ctx, `SELECT inventory FROM products WHERE id=$1`, line.ProductID).Scan(&available)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return res, err
		}
		res.Depleted = append(res.Depleted, DepletedLine{
			ProductID: line.ProductID,
			Requested: line.Quantity,
			Available: available,
		})
	}

	return res, nil
}
