// Package checkout implements the order-checkout transaction: it converts a
// user's cart into an order, snapshotting prices and reserving stock, as a
// single atomic unit against the backing store.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/shopcart-api/internal/domain/cart"
	"github.com/xenking/shopcart-api/internal/domain/order"
	"github.com/xenking/shopcart-api/internal/domain/product"
)

// ErrEmptyCart is returned when checking out a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ProductNotFoundError indicates a cart line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. Available carries the stock observed inside the transaction so
// the client can act on it.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// Stores bundles the repositories the engine needs, all bound to the same
// storage transaction.
type Stores struct {
	Carts    cart.Repository
	Products product.Repository
	Orders   order.Repository
}

// TxRunner executes fn inside a single storage transaction. Any error
// returned by fn rolls the transaction back; a nil return commits it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Receipt is the result of a successful checkout: the created order and its
// line items with prices frozen at purchase time.
type Receipt struct {
	Order order.Order
	Lines []order.Line
}
