package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurashop/storefront/internal/domain/inventory"
	"github.com/aurashop/storefront/internal/domain/product"
	"github.com/aurashop/storefront/internal/storage/memory"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context, _ product.Filter) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*Order, error) {
	return m.lastOrder, nil
}

type recordingLedger struct {
	inner    inventory.Ledger
	reserved [][]inventory.Line
	released []*inventory.Reservation
	relErr   error
}

func (r *recordingLedger) Reserve(ctx context.Context, lines []inventory.Line) (*inventory.Reservation, error) {
	r.reserved = append(r.reserved, lines)
	return r.inner.Reserve(ctx, lines)
}

func (r *recordingLedger) Release(ctx context.Context, res *inventory.Reservation) error {
	r.released = append(r.released, res)
	if r.relErr != nil {
		return r.relErr
	}
	return r.inner.Release(ctx, res)
}

// --- Helpers ---

func newTestProduct(id string, price string, stock int) *product.Product {
	return &product.Product{
		ID:        id,
		Name:      "Product " + id,
		Slug:      "product-" + id,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Available: true,
	}
}

func newFixture(products ...*product.Product) (*mockProductRepo, *memory.Ledger) {
	byID := make(map[string]*product.Product, len(products))
	items := make(map[string]memory.Item, len(products))
	for _, p := range products {
		byID[p.ID] = p
		items[p.ID] = memory.Item{Stock: p.Stock, Available: p.Available}
	}
	return &mockProductRepo{byID: byID}, memory.NewLedger(items)
}

func testCustomer() CustomerInfo {
	return CustomerInfo{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "12 Analytical Way",
		City:       "London",
		PostalCode: "N1 9GU",
	}
}

// --- Tests ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	svc := NewService(repo, ledger, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Customer: testCustomer()})
	require.ErrorIs(t, err, ErrEmptyCart)

	// Read-only failure: nothing mutated.
	assert.Equal(t, 5, ledger.Stock("p1"))
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	svc := NewService(repo, ledger, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "p1", Quantity: 0}},
	})

	var iq *inventory.InvalidQuantityError
	require.ErrorAs(t, err, &iq)
	assert.Equal(t, "p1", iq.ProductID)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	svc := NewService(repo, ledger, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "missing", Quantity: 1},
		},
	})

	var ue *inventory.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"missing"}, ue.ProductIDs)
	assert.Equal(t, 5, ledger.Stock("p1"))
}

func TestPlaceOrder_UnavailableProduct(t *testing.T) {
	disabled := newTestProduct("p2", "10.00", 50)
	disabled.Available = false
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5), disabled)
	svc := NewService(repo, ledger, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "p2", Quantity: 1}},
	})

	// Unavailability is distinct from insufficient stock, even with stock on
	// hand.
	var ue *inventory.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"p2"}, ue.ProductIDs)
}

func TestPlaceOrder_Success(t *testing.T) {
	// Product P: stock 10, price 20.00; cart (P, qty 3) → total 60.00, stock 7.
	repo, ledger := newFixture(newTestProduct("P", "20.00", 10))
	orders := &mockOrderRepo{}
	svc := NewService(repo, ledger, orders, nil)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "P", Quantity: 3}},
	})

	require.NoError(t, err)
	require.NotNil(t, o)
	assert.NotEmpty(t, o.ID)
	assert.True(t, decimal.RequireFromString("60.00").Equal(o.Total))
	require.Len(t, o.Lines, 1)
	assert.True(t, decimal.RequireFromString("20.00").Equal(o.Lines[0].UnitPrice))
	assert.Equal(t, 7, ledger.Stock("P"))
	assert.Equal(t, o, orders.lastOrder)

	// A follow-up request for 8 units sees 7 < 8 and fails cleanly.
	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "P", Quantity: 8}},
	})
	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 7, ledger.Stock("P"))
}

func TestPlaceOrder_TotalIsServerComputed(t *testing.T) {
	// The request type carries no price field at all: whatever the client
	// asserted is gone before the service runs. The total must come from the
	// catalog price.
	repo, ledger := newFixture(
		newTestProduct("p1", "349.99", 25),
		newTestProduct("p2", "85.00", 14),
	)
	svc := NewService(repo, ledger, &mockOrderRepo{}, nil)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("784.98").Equal(o.Total))
}

func TestPlaceOrder_DuplicateLinesAggregated(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	rec := &recordingLedger{inner: ledger}
	svc := NewService(repo, rec, &mockOrderRepo{}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 3},
			{ProductID: "p1", Quantity: 4},
		},
	})

	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Len(t, ise.Shortfalls, 1)
	assert.Equal(t, 7, ise.Shortfalls[0].Requested)
	assert.Equal(t, 5, ledger.Stock("p1"))

	// The ledger saw one aggregated line, not two independent checks.
	require.Len(t, rec.reserved, 1)
	assert.Equal(t, []inventory.Line{{ProductID: "p1", Quantity: 7}}, rec.reserved[0])
}

func TestPlaceOrder_DuplicateLinesPreservedInOrder(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 10))
	svc := NewService(repo, ledger, &mockOrderRepo{}, nil)

	o, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 3},
			{ProductID: "p1", Quantity: 4},
		},
	})

	require.NoError(t, err)
	// Caller line granularity survives; stock decremented once by the sum.
	assert.Len(t, o.Lines, 2)
	assert.True(t, decimal.RequireFromString("70.00").Equal(o.Total))
	assert.Equal(t, 3, ledger.Stock("p1"))
}

func TestPlaceOrder_PersistFailureReleasesReservation(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	rec := &recordingLedger{inner: ledger}
	svc := NewService(repo, rec, &mockOrderRepo{err: errors.New("db write failed")}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "p1", Quantity: 2}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	require.Len(t, rec.released, 1)
	assert.Equal(t, 5, ledger.Stock("p1"))
}

func TestPlaceOrder_ReleaseFailureDoesNotPanic(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	rec := &recordingLedger{inner: ledger, relErr: errors.New("ledger down")}
	svc := NewService(repo, rec, &mockOrderRepo{err: errors.New("db write failed")}, nil)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "p1", Quantity: 2}},
	})

	// The caller still sees the persistence failure; the stranded
	// reservation is escalated through the logger, not the return value.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	require.Len(t, rec.released, 1)
}

func TestPlaceOrder_CancelledCallerStillPersists(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	orders := &mockOrderRepo{}
	svc := NewService(repo, ledger, orders, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ordersCtxDone := false
	orders.err = nil
	svc.orders = createFunc(func(ctx context.Context, o *Order) error {
		cancel() // caller goes away mid-persist
		ordersCtxDone = ctx.Err() != nil
		orders.lastOrder = o
		return nil
	})

	o, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "p1", Quantity: 1}},
	})

	require.NoError(t, err)
	require.NotNil(t, o)
	assert.False(t, ordersCtxDone, "persistence context must be detached from the caller")
	assert.Equal(t, 4, ledger.Stock("p1"))
}

func TestPlaceOrder_PrefilterRejectsWithoutCatalogHit(t *testing.T) {
	repo, ledger := newFixture(newTestProduct("p1", "10.00", 5))
	repo.getErr = errors.New("catalog must not be queried")
	svc := NewService(repo, ledger, &mockOrderRepo{}, filterFunc(func(string) bool { return false }))

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer: testCustomer(),
		Lines:    []CartLine{{ProductID: "nope", Quantity: 1}},
	})

	var ue *inventory.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"nope"}, ue.ProductIDs)
}

// --- Function adapters ---

type createFunc func(ctx context.Context, o *Order) error

func (f createFunc) Create(ctx context.Context, o *Order) error { return f(ctx, o) }

func (f createFunc) GetByID(_ context.Context, _ string) (*Order, error) { return nil, nil }

type filterFunc func(id string) bool

func (f filterFunc) MayExist(id string) bool { return f(id) }
