// Package memory provides in-process implementations of the storage
// interfaces. They back the dev mode and the unit and concurrency tests;
// production wiring uses the postgres and redis packages.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurashop/storefront/internal/domain/inventory"
)

// Item is the per-product state tracked by the in-memory ledger.
type Item struct {
	Stock     int
	Available bool
}

var _ inventory.Ledger = (*Ledger)(nil)

// Ledger implements inventory.Ledger with a single mutex guarding the
// check-and-decrement. The decision ("enough stock?") and the mutation happen
// under one critical section, so no interleaving can observe partial state.
type Ledger struct {
	mu    sync.Mutex
	items map[string]*Item
}

// NewLedger creates a Ledger seeded with the given items.
func NewLedger(items map[string]Item) *Ledger {
	m := make(map[string]*Item, len(items))
	for id, it := range items {
		cp := it
		m[id] = &cp
	}
	return &Ledger{items: m}
}

// Reserve validates the whole aggregated batch and applies all decrements
// only when every line passes.
func (l *Ledger) Reserve(_ context.Context, lines []inventory.Line) (*inventory.Reservation, error) {
	agg := inventory.Aggregate(lines)
	for _, line := range agg {
		if line.Quantity <= 0 {
			return nil, &inventory.InvalidQuantityError{ProductID: line.ProductID}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		unavailable []string
		shortfalls  []inventory.Shortfall
	)
	for _, line := range agg {
		it, ok := l.items[line.ProductID]
		if !ok || !it.Available {
			unavailable = append(unavailable, line.ProductID)
			continue
		}
		if it.Stock < line.Quantity {
			shortfalls = append(shortfalls, inventory.Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: it.Stock,
			})
		}
	}
	if len(unavailable) > 0 {
		return nil, &inventory.UnavailableError{ProductIDs: unavailable}
	}
	if len(shortfalls) > 0 {
		return nil, &inventory.InsufficientStockError{Shortfalls: shortfalls}
	}

	for _, line := range agg {
		l.items[line.ProductID].Stock -= line.Quantity
	}

	return &inventory.Reservation{
		ID:        uuid.New().String(),
		Lines:     agg,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Release restores the stock decremented by a prior Reserve.
func (l *Ledger) Release(_ context.Context, res *inventory.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range res.Lines {
		if it, ok := l.items[line.ProductID]; ok {
			it.Stock += line.Quantity
		}
	}
	return nil
}

// Stock returns the current stock for a product, or -1 when unknown.
func (l *Ledger) Stock(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[id]
	if !ok {
		return -1
	}
	return it.Stock
}
