package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ListProducts(ctx context.Context, f Filter) (ProductPage, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListActiveOffers(ctx context.Context, now time.Time) ([]SpecialOffer, error)
	ProductsByOffer(ctx context.Context, offerID int64) ([]Product, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, slug, description FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, contact_email, website FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	out := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactEmail, &s.Website); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const productColumns = `p.id, p.name, p.description, p.price::text, p.compare_at_price::text, p.image_url,
	p.inventory, p.is_dropshipped, p.is_active, p.category_id, p.supplier_id,
	c.name, s.name, p.created_at`

const productFrom = `FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN suppliers s ON s.id = p.supplier_id`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p            Product
		price        string
		compareAt    *string
		categoryID   *int64
		supplierID   *int64
		categoryName *string
		supplierName *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &compareAt, &p.ImageURL,
		&p.Inventory, &p.IsDropshipped, &p.IsActive, &categoryID, &supplierID,
		&categoryName, &supplierName, &p.CreatedAt); err != nil {
		return Product{}, err
	}

	var err error
	if p.Price, err = db.ParseDecimal(price); err != nil {
		return Product{}, err
	}
	if p.CompareAtPrice, err = db.ParseNullDecimal(compareAt); err != nil {
		return Product{}, err
	}
	p.CategoryID, p.SupplierID = categoryID, supplierID
	p.CategoryName, p.SupplierName = categoryName, supplierName
	return p, nil
}

// buildProductWhere renders the filter as a WHERE clause with positional args.
func buildProductWhere(f Filter) (string, []any) {
	conds := []string{"p.is_active = true"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CategoryID != nil {
		add("p.category_id = $%d", *f.CategoryID)
	}
	if f.SupplierID != nil {
		add("p.supplier_id = $%d", *f.SupplierID)
	}
	if f.MinPrice.Valid {
		add("p.price >= $%d::numeric", f.MinPrice.Decimal.String())
	}
	if f.MaxPrice.Valid {
		add("p.price <= $%d::numeric", f.MaxPrice.Decimal.String())
	}
	if f.IsDropshipped != nil {
		add("p.is_dropshipped = $%d", *f.IsDropshipped)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(f Filter) string {
	col := "p.created_at"
	switch f.SortBy {
	case SortPrice:
		col = "p.price"
	case SortName:
		col = "p.name"
	}
	dir := "DESC"
	if f.SortDirection == "asc" {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, p.id %s", col, dir, dir)
}

// ListProducts runs the count and the page query concurrently.
func (r *PostgresRepository) ListProducts(ctx context.Context, f Filter) (ProductPage, error) {
	f = f.Normalize()
	where, args := buildProductWhere(f)

	var (
		total    int
		products []Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := "SELECT count(*) FROM products p " + where
		if err := r.pool.QueryRow(gctx, q, args...).Scan(&total); err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)
		q := fmt.Sprintf("SELECT %s %s %s %s LIMIT $%d OFFSET $%d",
			productColumns, productFrom, where, orderClause(f), len(args)+1, len(args)+2)

		rows, err := r.pool.Query(gctx, q, pageArgs...)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		defer rows.Close()

		out := []Product{}
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return fmt.Errorf("scan product: %w", err)
			}
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		products = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Products: products, Total: total}, nil
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	q := fmt.Sprintf("SELECT %s %s WHERE p.id=$1", productColumns, productFrom)
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListActiveOffers(ctx context.Context, now time.Time) ([]SpecialOffer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description, discount_label, image_url, is_active, starts_at, ends_at
		FROM special_offers
		WHERE is_active = true AND starts_at <= $1 AND ends_at >= $1
		ORDER BY ends_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	out := []SpecialOffer{}
	for rows.Next() {
		var o SpecialOffer
		if err := rows.Scan(&o.ID, &o.Title, &o.Description, &o.DiscountLabel, &o.ImageURL, &o.IsActive, &o.StartsAt, &o.EndsAt); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ProductsByOffer(ctx context.Context, offerID int64) ([]Product, error) {
	q := fmt.Sprintf(`SELECT %s %s
		JOIN offer_products op ON op.product_id = p.id
		WHERE op.offer_id = $1 AND p.is_active = true
		ORDER BY p.name`, productColumns, productFrom)

	rows, err := r.pool.Query(ctx, q, offerID)
	if err != nil {
		return nil, fmt.Errorf("list offer products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
