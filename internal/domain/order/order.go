package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// CustomerInfo carries the contact and shipping fields collected at checkout.
// The fields are opaque to order placement; they are stored as-is.
type CustomerInfo struct {
	FirstName  string
	LastName   string
	Email      string
	Address    string
	City       string
	PostalCode string
}

// OrderLine is a value object owned by its Order. UnitPrice is the catalog
// price snapshotted at placement time and never changes afterwards.
type OrderLine struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns UnitPrice * Quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the aggregate persisted by a successful placement. It is created
// exactly once and immutable thereafter; Total always equals the sum of line
// subtotals, computed server-side.
type Order struct {
	ID        string
	Customer  CustomerInfo
	Lines     []OrderLine
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Repository defines persistence operations for orders. Create must persist
// the header and all lines as a single unit: either both persist or neither
// does.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
