package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shopcart-api/internal/domain/cart"
	"github.com/xenking/shopcart-api/internal/domain/order"
	"github.com/xenking/shopcart-api/internal/domain/product"
)

// --- In-memory transactional store ---
//
// memStore implements the three repositories plus TxRunner over plain maps.
// InTx serializes transactions with a mutex (standing in for row locking) and
// restores a snapshot of the full state when fn fails, mirroring a database
// rollback. This lets the tests observe the engine's atomicity guarantees
// directly.

type memState struct {
	carts      map[string]*cart.Cart // keyed by user ID
	cartLines  map[string][]cart.Line
	products   map[string]*product.Product
	orders     map[string]*order.Order
	orderLines map[string][]order.Line
}

func newMemState() *memState {
	return &memState{
		carts:      make(map[string]*cart.Cart),
		cartLines:  make(map[string][]cart.Line),
		products:   make(map[string]*product.Product),
		orders:     make(map[string]*order.Order),
		orderLines: make(map[string][]order.Line),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.carts {
		cp := *v
		c.carts[k] = &cp
	}
	for k, v := range s.cartLines {
		c.cartLines[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range s.products {
		cp := *v
		c.products[k] = &cp
	}
	for k, v := range s.orders {
		cp := *v
		c.orders[k] = &cp
	}
	for k, v := range s.orderLines {
		c.orderLines[k] = append([]order.Line(nil), v...)
	}
	return c
}

type memStore struct {
	mu    sync.Mutex
	state *memState

	// failure hooks for storage-fault tests.
	orderCreateErr error
	clearCartErr   error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) InTx(_ context.Context, fn func(ctx context.Context, s Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	err := fn(context.Background(), Stores{
		Carts:    (*memCarts)(m),
		Products: (*memProducts)(m),
		Orders:   (*memOrders)(m),
	})
	if err != nil {
		m.state = snapshot
	}
	return err
}

// addCart seeds a cart with lines for a user.
func (m *memStore) addCart(userID string, lines ...cart.Line) *cart.Cart {
	c := &cart.Cart{ID: "cart-" + userID, UserID: userID}
	m.state.carts[userID] = c
	for i := range lines {
		lines[i].CartID = c.ID
		if lines[i].ID == "" {
			lines[i].ID = fmt.Sprintf("%s-line-%d", c.ID, i)
		}
	}
	m.state.cartLines[c.ID] = lines
	return c
}

func (m *memStore) addProduct(id, name, price string, stock int) {
	m.state.products[id] = &product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

type memCarts memStore

func (m *memCarts) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.state.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *memCarts) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	if c, err := m.GetByUser(ctx, userID); err == nil {
		return c, nil
	}
	c := &cart.Cart{ID: "cart-" + userID, UserID: userID}
	m.state.carts[userID] = c
	return c, nil
}

func (m *memCarts) Lines(_ context.Context, cartID string) ([]cart.Line, error) {
	return append([]cart.Line(nil), m.state.cartLines[cartID]...), nil
}

func (m *memCarts) UpsertLine(_ context.Context, cartID, productID string, qty int) (*cart.Line, error) {
	lines := m.state.cartLines[cartID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += qty
			return &lines[i], nil
		}
	}
	ln := cart.Line{ID: fmt.Sprintf("%s-line-%d", cartID, len(lines)), CartID: cartID, ProductID: productID, Quantity: qty}
	m.state.cartLines[cartID] = append(lines, ln)
	return &ln, nil
}

func (m *memCarts) UpdateLineQuantity(_ context.Context, cartID, lineID string, qty int) (*cart.Line, error) {
	lines := m.state.cartLines[cartID]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = qty
			return &lines[i], nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (m *memCarts) DeleteLine(_ context.Context, cartID, lineID string) error {
	lines := m.state.cartLines[cartID]
	for i := range lines {
		if lines[i].ID == lineID {
			m.state.cartLines[cartID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (m *memCarts) DeleteLines(_ context.Context, cartID string) error {
	if (*memStore)(m).clearCartErr != nil {
		return (*memStore)(m).clearCartErr
	}
	m.state.cartLines[cartID] = nil
	return nil
}

type memProducts memStore

func (m *memProducts) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.state.products))
	for _, p := range m.state.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.state.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := m.state.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

type memOrders memStore

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	if (*memStore)(m).orderCreateErr != nil {
		return (*memStore)(m).orderCreateErr
	}
	cp := *o
	m.state.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) CreateLines(_ context.Context, lines []order.Line) error {
	for _, ln := range lines {
		m.state.orderLines[ln.OrderID] = append(m.state.orderLines[ln.OrderID], ln)
	}
	return nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.state.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) LinesByOrder(_ context.Context, orderID string) ([]order.Line, error) {
	return append([]order.Line(nil), m.state.orderLines[orderID]...), nil
}

// --- Tests ---

func TestCheckout_CartNotFound(t *testing.T) {
	engine := NewEngine(newMemStore())

	_, err := engine.Checkout(context.Background(), "nobody", order.PaymentCard)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := newMemStore()
	store.addCart("u1")
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", order.PaymentCard)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_InvalidPaymentMethod(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", "Widget", "10.00", 5)
	store.addCart("u1", cart.Line{ProductID: "p1", Quantity: 1})
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", "paypal")
	require.ErrorIs(t, err, order.ErrInvalidPaymentMethod)
	assert.Empty(t, store.state.orders)
}

func TestCheckout_ProductNotFound(t *testing.T) {
	store := newMemStore()
	store.addCart("u1", cart.Line{ProductID: "ghost", Quantity: 1})
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", order.PaymentCashOnDelivery)

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "ghost", pnfErr.ProductID)

	// The stale cart line survives the failed attempt untouched.
	assert.Len(t, store.state.cartLines["cart-u1"], 1)
	assert.Empty(t, store.state.orders)
}

func TestCheckout_Success(t *testing.T) {
	store := newMemStore()
	store.addProduct("pa", "Product A", "10.00", 10)
	store.addProduct("pb", "Product B", "5.00", 10)
	store.addCart("u1",
		cart.Line{ProductID: "pa", Quantity: 2},
		cart.Line{ProductID: "pb", Quantity: 1},
	)
	engine := NewEngine(store)

	receipt, err := engine.Checkout(context.Background(), "u1", order.PaymentEsewa)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("25.00").Equal(receipt.Order.TotalAmount),
		"total = %s", receipt.Order.TotalAmount)
	assert.Equal(t, order.StatusPending, receipt.Order.Status)
	assert.Equal(t, order.PaymentEsewa, receipt.Order.PaymentMethod)
	assert.Equal(t, "u1", receipt.Order.UserID)
	require.Len(t, receipt.Lines, 2)

	// Conservation: total equals the sum over lines of qty * unit price.
	sum := decimal.Zero
	for _, ln := range receipt.Lines {
		assert.Equal(t, receipt.Order.ID, ln.OrderID)
		sum = sum.Add(ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity))))
	}
	assert.True(t, sum.Equal(receipt.Order.TotalAmount))

	// Stock reserved, cart emptied, order persisted.
	assert.Equal(t, 8, store.state.products["pa"].Stock)
	assert.Equal(t, 9, store.state.products["pb"].Stock)
	assert.Empty(t, store.state.cartLines["cart-u1"])
	assert.Len(t, store.state.orders, 1)
	assert.Len(t, store.state.orderLines[receipt.Order.ID], 2)
}

func TestCheckout_PriceSnapshotImmutable(t *testing.T) {
	store := newMemStore()
	store.addProduct("pa", "Product A", "10.00", 10)
	store.addCart("u1", cart.Line{ProductID: "pa", Quantity: 1})
	engine := NewEngine(store)

	receipt, err := engine.Checkout(context.Background(), "u1", order.PaymentCard)
	require.NoError(t, err)

	// A later catalog price edit must not leak into the recorded line.
	store.state.products["pa"].Price = decimal.RequireFromString("99.99")

	require.Len(t, receipt.Lines, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(receipt.Lines[0].UnitPrice))
	stored := store.state.orderLines[receipt.Order.ID]
	require.Len(t, stored, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(stored[0].UnitPrice))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	store := newMemStore()
	store.addProduct("pa", "Product A", "10.00", 3)
	store.addCart("u1", cart.Line{ProductID: "pa", Quantity: 5})
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", order.PaymentCard)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Product A", stockErr.Name)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)

	// Nothing mutated.
	assert.Equal(t, 3, store.state.products["pa"].Stock)
	assert.Len(t, store.state.cartLines["cart-u1"], 1)
	assert.Empty(t, store.state.orders)
	assert.Empty(t, store.state.orderLines)
}

func TestCheckout_AtomicAcrossLines(t *testing.T) {
	store := newMemStore()
	store.addProduct("pa", "Product A", "10.00", 10)
	store.addProduct("pb", "Product B", "5.00", 0)
	store.addCart("u1",
		cart.Line{ProductID: "pa", Quantity: 2},
		cart.Line{ProductID: "pb", Quantity: 1},
	)
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", order.PaymentKhalti)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "pb", stockErr.ProductID)

	// The passing first line must not leave any trace behind.
	assert.Equal(t, 10, store.state.products["pa"].Stock)
	assert.Len(t, store.state.cartLines["cart-u1"], 2)
	assert.Empty(t, store.state.orders)
}

func TestCheckout_StorageFaultRollsBack(t *testing.T) {
	store := newMemStore()
	store.addProduct("pa", "Product A", "10.00", 10)
	store.addCart("u1", cart.Line{ProductID: "pa", Quantity: 1})
	store.clearCartErr = errors.New("connection reset")
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", order.PaymentCard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear cart")

	// The fault hit after order creation and stock decrement; the rollback
	// must undo both.
	assert.Equal(t, 10, store.state.products["pa"].Stock)
	assert.Empty(t, store.state.orders)
	assert.Len(t, store.state.cartLines["cart-u1"], 1)
}

func TestCheckout_OrderCreateFault(t *testing.T) {
	store := newMemStore()
	store.addProduct("pa", "Product A", "10.00", 10)
	store.addCart("u1", cart.Line{ProductID: "pa", Quantity: 1})
	store.orderCreateErr = errors.New("db write failed")
	engine := NewEngine(store)

	_, err := engine.Checkout(context.Background(), "u1", order.PaymentCard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Equal(t, 10, store.state.products["pa"].Stock)
}

func TestCheckout_NoOversellUnderConcurrency(t *testing.T) {
	const (
		stock    = 5
		shoppers = 12
	)

	store := newMemStore()
	store.addProduct("hot", "Hot Item", "19.99", stock)
	for i := range shoppers {
		store.addCart(fmt.Sprintf("u%d", i), cart.Line{ProductID: "hot", Quantity: 1})
	}
	engine := NewEngine(store)

	results := make([]error, shoppers)
	var g errgroup.Group
	for i := range shoppers {
		g.Go(func() error {
			_, err := engine.Checkout(context.Background(), fmt.Sprintf("u%d", i), order.PaymentCard)
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr, "losers must fail with InsufficientStockError")
	}

	assert.Equal(t, stock, successes, "exactly stock-many checkouts may win")
	assert.Equal(t, 0, store.state.products["hot"].Stock, "stock must end at zero, never below")
	assert.Len(t, store.state.orders, stock)
}
