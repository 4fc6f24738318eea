package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

var (
	ErrNotFound          = errors.New("coupon not found")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	pool Querier
}

func NewPostgresRepository(pool Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const couponColumns = `id, code, discount_type, discount_value::text, minimum_purchase::text,
	usage_limit, usage_count, is_active, starts_at, expires_at`

func scanCoupon(row pgx.Row) (Coupon, error) {
	var (
		c          Coupon
		dtype      string
		value      string
		minimum    *string
		usageLimit *int
	)
	if err := row.Scan(&c.ID, &c.Code, &dtype, &value, &minimum, &usageLimit,
		&c.UsageCount, &c.IsActive, &c.StartsAt, &c.ExpiresAt); err != nil {
		return Coupon{}, err
	}
	c.DiscountType = pricing.DiscountType(dtype)
	c.UsageLimit = usageLimit

	var err error
	if c.DiscountValue, err = db.ParseDecimal(value); err != nil {
		return Coupon{}, err
	}
	if c.MinimumPurchase, err = db.ParseNullDecimal(minimum); err != nil {
		return Coupon{}, err
	}
	return c, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, now time.Time) ([]Coupon, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE is_active = true AND starts_at <= $1 AND expires_at >= $1
		ORDER BY expires_at, code
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	out := []Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByCode returns the active coupon with code whose window contains now.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string, now time.Time) (Coupon, error) {
	c, err := scanCoupon(r.pool.QueryRow(ctx, `
		SELECT `+couponColumns+`
		FROM coupons
		WHERE code = $1 AND is_active = true AND starts_at <= $2 AND expires_at >= $2
	`, code, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (Coupon, error) {
	c, err := scanCoupon(tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

// RedeemWithTx increments usage_count only while it is below usage_limit, so
// concurrent redemptions can never exceed the limit.
func (r *PostgresRepository) RedeemWithTx(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)
	`, id)
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUsageLimitReached
	}
	return nil
}
