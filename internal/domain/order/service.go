package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aurashop/storefront/internal/domain/inventory"
	"github.com/aurashop/storefront/internal/domain/product"
)

// ErrEmptyCart is returned when a placement request carries no lines.
var ErrEmptyCart = errors.New("cart is empty")

// CartLine is one untrusted (product, quantity) pair submitted by a caller.
// Any client-asserted price is discarded before it reaches this type: lines
// are repriced from the catalog inside PlaceOrder.
type CartLine struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Customer CustomerInfo
	Lines    []CartLine
}

// IDFilter is an optional probabilistic prefilter over known product ids.
// MayExist returning false is definitive; true still requires a catalog
// lookup.
type IDFilter interface {
	MayExist(id string) bool
}

// Service turns an untrusted cart submission into a priced, validated,
// persisted Order. All stock mutation is delegated to the inventory ledger.
type Service struct {
	products  product.Repository
	ledger    inventory.Ledger
	orders    Repository
	prefilter IDFilter
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
// prefilter may be nil.
func NewService(
	products product.Repository,
	ledger inventory.Ledger,
	orders Repository,
	prefilter IDFilter,
) *Service {
	return &Service{
		products:  products,
		ledger:    ledger,
		orders:    orders,
		prefilter: prefilter,
		now:       time.Now,
	}
}

// PlaceOrder validates the cart, reprices every line from the catalog,
// reserves stock atomically across all lines, and persists the order.
//
// Any failure before the reservation commits leaves state untouched. Once the
// reservation has committed, persistence runs on a context detached from the
// caller so a cancelled request cannot strand decremented stock; if
// persistence still fails, the reservation is released.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Validate quantities and collect distinct product ids.
	seen := make(map[string]struct{}, len(req.Lines))
	ids := make([]string, 0, len(req.Lines))
	var unknown []string
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, &inventory.InvalidQuantityError{ProductID: l.ProductID}
		}
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		if s.prefilter != nil && !s.prefilter.MayExist(l.ProductID) {
			unknown = append(unknown, l.ProductID)
			continue
		}
		ids = append(ids, l.ProductID)
	}
	if len(unknown) > 0 {
		return nil, &inventory.UnavailableError{ProductIDs: unknown}
	}

	// Batch fetch all products in a single query and reprice from the
	// authoritative catalog data.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	prices := make(map[string]decimal.Decimal, len(fetched))
	for _, p := range fetched {
		if p.Available {
			prices[p.ID] = p.Price
		}
	}
	// Missing and disabled products end up the same way: no price.
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return nil, &inventory.UnavailableError{ProductIDs: unknown}
	}

	// Reserve aggregated quantities. The ledger is all-or-nothing: on error
	// no stock has been touched and the error already names every short
	// product.
	resLines := make([]inventory.Line, len(req.Lines))
	for i, l := range req.Lines {
		resLines[i] = inventory.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	res, err := s.ledger.Reserve(ctx, inventory.Aggregate(resLines))
	if err != nil {
		return nil, err
	}

	// Build the aggregate. One line per submitted cart line, priced from the
	// catalog; total is the server-computed sum.
	lines := make([]OrderLine, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		lines[i] = OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: prices[l.ProductID],
		}
		total = total.Add(lines[i].Subtotal())
	}

	o := &Order{
		ID:        uuid.New().String(),
		Customer:  req.Customer,
		Lines:     lines,
		Total:     total.Round(2),
		CreatedAt: s.now().UTC(),
	}

	// The reservation is committed. Persist on a detached context: the
	// caller going away must not leave stock decremented with no order.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.orders.Create(persistCtx, o); err != nil {
		s.release(persistCtx, res, err)
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// release compensates a committed reservation whose order could not be
// persisted. A failed release leaves stock decremented with no corresponding
// order; that is surfaced as an operational alert, never swallowed.
func (s *Service) release(ctx context.Context, res *inventory.Reservation, cause error) {
	if err := s.ledger.Release(ctx, res); err != nil {
		zctx.From(ctx).Error("stock reservation stranded: release failed after persistence error",
			zap.String("alert", "stranded_reservation"),
			zap.String("reservation_id", res.ID),
			zap.NamedError("persist_error", cause),
			zap.Error(err),
		)
		return
	}
	zctx.From(ctx).Warn("order persistence failed, reservation released",
		zap.String("reservation_id", res.ID),
		zap.Error(cause),
	)
}
