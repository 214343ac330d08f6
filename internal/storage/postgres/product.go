package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurashop/storefront/internal/domain/product"
)

const productColumns = `id, name, slug, description, price, COALESCE(category_id, ''), image_url, stock, available`

const (
	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	listCategoriesSQL = `SELECT id, name, slug FROM categories ORDER BY name`

	listProductIDsSQL = `SELECT id FROM products`
)

var (
	_ product.Repository         = (*ProductRepository)(nil)
	_ product.CategoryRepository = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns available products matching the filter, ordered by ID.
// Disabled products never appear in listings; they are only reachable through
// GetByID(s) so the order path can tell "disabled" apart from "missing".
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + productColumns + ` FROM products WHERE available`)
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		sb.WriteString(` AND category_id = $` + strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		sb.WriteString(` AND (name ILIKE $` + n + ` OR description ILIKE $` + n + `)`)
	}
	sb.WriteString(` ORDER BY id`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListCategories returns all categories ordered by name.
func (r *ProductRepository) ListCategories(ctx context.Context) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Category, error) {
		var c product.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug)
		return c, err
	})
}

// ListIDs returns every product id in the catalog. Used to warm the
// product-id prefilter at startup.
func (r *ProductRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listProductIDsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing product ids")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &price,
		&p.CategoryID, &p.ImageURL, &p.Stock, &p.Available,
	)
	p.Price = price
	return p, err
}
