package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurashop/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, first_name, last_name, email, address, city, postal_code, total, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, unit_price, quantity, position)
	VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT id, first_name, last_name, email, address, city, postal_code, total, created_at
	FROM orders WHERE id = $1`

	getOrderLinesSQL = `SELECT product_id, unit_price, quantity
	FROM order_lines WHERE order_id = $1 ORDER BY position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and all lines in a single transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin order tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID,
		o.Customer.FirstName, o.Customer.LastName, o.Customer.Email,
		o.Customer.Address, o.Customer.City, o.Customer.PostalCode,
		o.Total, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "inserting order %q", o.ID)
	}

	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(insertOrderLineSQL, o.ID, l.ProductID, l.UnitPrice, l.Quantity, i)
	}
	br := tx.SendBatch(ctx, batch)
	for range o.Lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "inserting lines for order %q", o.ID)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "close line batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}
	return nil
}

// GetByID returns an order with its lines, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var o order.Order
		err := row.Scan(
			&o.ID,
			&o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Email,
			&o.Customer.Address, &o.Customer.City, &o.Customer.PostalCode,
			&o.Total, &o.CreatedAt,
		)
		return o, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	lineRows, err := r.pool.Query(ctx, getOrderLinesSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting lines for order %q", id)
	}
	o.Lines, err = pgx.CollectRows(lineRows, func(row pgx.CollectableRow) (order.OrderLine, error) {
		var l order.OrderLine
		err := row.Scan(&l.ProductID, &l.UnitPrice, &l.Quantity)
		return l, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning lines for order %q", id)
	}

	return &o, nil
}
