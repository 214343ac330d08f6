// Package cart defines the session cart store consumed by the checkout
// surface. The core order placement code never reaches into cart state; it
// receives an immutable snapshot of lines taken at checkout time.
package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotInCart is returned when updating or removing a product that is not
// present in the session's cart.
var ErrNotInCart = errors.New("product not in cart")

// Line is one (product, quantity) entry of a cart snapshot. Prices are never
// stored in the cart; checkout reprices every line from the catalog.
type Line struct {
	ProductID string
	Quantity  int
}

// Store holds per-session carts keyed by an opaque session identifier.
//
// Get returns a snapshot: mutating the returned slice has no effect on the
// stored cart.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Line, error)

	// Add increments the quantity for a product, inserting it when absent.
	Add(ctx context.Context, sessionID, productID string, quantity int) error

	// SetQuantity replaces the quantity for a product already in the cart.
	// A quantity of zero or less removes the line.
	SetQuantity(ctx context.Context, sessionID, productID string, quantity int) error

	Remove(ctx context.Context, sessionID, productID string) error
	Clear(ctx context.Context, sessionID string) error
}
