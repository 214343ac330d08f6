package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurashop/storefront/internal/domain/inventory"
)

const (
	lockProductsSQL = `SELECT id, stock, available FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	restoreStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`
)

var _ inventory.Ledger = (*Ledger)(nil)

// Ledger implements inventory.Ledger on PostgreSQL. Each Reserve runs in one
// transaction: every referenced row is locked with SELECT ... FOR UPDATE, the
// whole aggregated batch is validated against the locked rows, and only then
// are the decrements applied. Concurrent reservations touching the same
// product serialize on the row lock; reservations over disjoint products do
// not contend.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a Ledger that uses the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

type lockedRow struct {
	id        string
	stock     int
	available bool
}

// Reserve atomically decrements stock for every line or for none of them.
func (l *Ledger) Reserve(ctx context.Context, lines []inventory.Line) (*inventory.Reservation, error) {
	agg := inventory.Aggregate(lines)
	for _, line := range agg {
		if line.Quantity <= 0 {
			return nil, &inventory.InvalidQuantityError{ProductID: line.ProductID}
		}
	}

	// Rows are locked in ascending id order so two overlapping reservations
	// always acquire locks in the same sequence and cannot deadlock.
	ids := make([]string, len(agg))
	for i, line := range agg {
		ids[i] = line.ProductID
	}
	sort.Strings(ids)

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin reservation tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, lockProductsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock product rows")
	}
	locked, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (lockedRow, error) {
		var lr lockedRow
		err := row.Scan(&lr.id, &lr.stock, &lr.available)
		return lr, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan product rows")
	}

	byID := make(map[string]lockedRow, len(locked))
	for _, lr := range locked {
		byID[lr.id] = lr
	}

	// Validate the entire batch before touching anything, collecting every
	// failing product rather than stopping at the first.
	var (
		unavailable []string
		shortfalls  []inventory.Shortfall
	)
	for _, line := range agg {
		lr, ok := byID[line.ProductID]
		if !ok || !lr.available {
			unavailable = append(unavailable, line.ProductID)
			continue
		}
		if lr.stock < line.Quantity {
			shortfalls = append(shortfalls, inventory.Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: lr.stock,
			})
		}
	}
	if len(unavailable) > 0 {
		return nil, &inventory.UnavailableError{ProductIDs: unavailable}
	}
	if len(shortfalls) > 0 {
		return nil, &inventory.InsufficientStockError{Shortfalls: shortfalls}
	}

	// All lines passed against locked rows; apply every decrement. The
	// stock >= $2 guard mirrors the CHECK constraint: with the rows locked it
	// cannot fail, so a zero row count means the invariant is broken.
	batch := &pgx.Batch{}
	for _, line := range agg {
		batch.Queue(decrementStockSQL, line.ProductID, line.Quantity)
	}
	br := tx.SendBatch(ctx, batch)
	for _, line := range agg {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, errors.Wrapf(err, "decrement stock for %q", line.ProductID)
		}
		if tag.RowsAffected() != 1 {
			_ = br.Close()
			return nil, errors.Errorf("stock decrement affected %d rows for %q", tag.RowsAffected(), line.ProductID)
		}
	}
	if err := br.Close(); err != nil {
		return nil, errors.Wrap(err, "close decrement batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit reservation")
	}

	return &inventory.Reservation{
		ID:        uuid.New().String(),
		Lines:     agg,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Release restores the stock decremented by a prior Reserve. All increments
// run in one transaction so a partially released reservation is impossible.
func (l *Ledger) Release(ctx context.Context, res *inventory.Reservation) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin release tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, line := range res.Lines {
		batch.Queue(restoreStockSQL, line.ProductID, line.Quantity)
	}
	br := tx.SendBatch(ctx, batch)
	for _, line := range res.Lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "restore stock for %q", line.ProductID)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "close restore batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit release")
	}
	return nil
}
