// Package inventory owns the authoritative stock count per product.
//
// All stock mutation funnels through a Ledger. Reserve is the single
// serialization point: for any one product, concurrent reservations behave as
// if executed in some sequential order, and the sum of committed decrements
// never exceeds the stock that existed before them.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Line is one (product, quantity) pair of a reservation request.
type Line struct {
	ProductID string
	Quantity  int
}

// Reservation is the commit token for a successfully applied batch of
// stock decrements. It carries the aggregated lines so the exact decrement
// can be compensated via Release.
type Reservation struct {
	ID        string
	Lines     []Line
	CreatedAt time.Time
}

// Ledger is the only code path permitted to mutate product stock.
type Ledger interface {
	// Reserve validates the whole batch first and applies all decrements only
	// if every line passes. On failure no stock is mutated and the returned
	// error identifies every failing product, not just the first.
	//
	// Duplicate product ids are aggregated before checking; callers may pass
	// raw cart lines.
	Reserve(ctx context.Context, lines []Line) (*Reservation, error)

	// Release restores the stock decremented by a prior Reserve. It is the
	// compensation path for a reservation whose order could not be persisted.
	Release(ctx context.Context, res *Reservation) error
}

// Aggregate sums quantities for duplicate product ids, preserving the order
// in which each product first appears. Checking duplicates independently
// against the same stock row is the classic partial-deduction bug; every
// Ledger implementation validates against aggregated lines only.
func Aggregate(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Shortfall describes one product that could not cover the requested
// quantity.
type Shortfall struct {
	ProductID string
	Requested int
	Available int
}

// InsufficientStockError reports every product in the batch whose stock was
// short, so the caller can surface a complete diagnosis in one response.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	var b strings.Builder
	b.WriteString("insufficient stock:")
	for _, s := range e.Shortfalls {
		fmt.Fprintf(&b, " %s (requested %d, available %d)", s.ProductID, s.Requested, s.Available)
	}
	return b.String()
}

// UnavailableError reports every referenced product that is missing from the
// catalog or marked unavailable. Distinct from InsufficientStockError: a
// disabled product fails reservation even when its stock would suffice.
type UnavailableError struct {
	ProductIDs []string
}

func (e *UnavailableError) Error() string {
	return "product not available: " + strings.Join(e.ProductIDs, ", ")
}
