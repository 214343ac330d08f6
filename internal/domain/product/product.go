package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
//
// Stock is the authoritative per-product counter. It is mutated only through
// the inventory ledger; every other component treats it as read-only.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	CategoryID  string
	ImageURL    string
	Stock       int
	Available   bool
}

// Category groups products for catalog browsing.
type Category struct {
	ID   string
	Name string
	Slug string
}

// Filter narrows a catalog listing. Zero values mean no constraint.
type Filter struct {
	// CategoryID restricts the listing to a single category.
	CategoryID string
	// Search matches case-insensitive substrings of name or description.
	Search string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// CategoryRepository defines read operations for categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
}
