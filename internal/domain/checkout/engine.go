package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopcart-api/internal/domain/order"
	"github.com/xenking/shopcart-api/internal/domain/product"
)

// Engine runs the checkout transaction. It carries no state of its own; every
// call works exclusively through repositories bound to the transaction the
// runner opens, so concurrent checkouts are serialized by the store's row
// locking rather than any in-process coordination.
type Engine struct {
	tx TxRunner
}

// NewEngine creates a checkout Engine using the given transaction runner.
func NewEngine(tx TxRunner) *Engine {
	return &Engine{tx: tx}
}

// Checkout converts the user's cart into an order.
//
// Inside one transaction it loads the cart and its lines, validates stock and
// snapshots the price per line, creates the order and its line items,
// decrements product stock via conditional updates, and clears the cart. Any
// failure rolls the whole transaction back so no partial state is ever
// visible: no order, no stock change, no cart mutation.
//
// Expected failures: cart.ErrNotFound, ErrEmptyCart,
// order.ErrInvalidPaymentMethod, *ProductNotFoundError,
// *InsufficientStockError. Anything else is a storage fault.
func (e *Engine) Checkout(ctx context.Context, userID string, method order.PaymentMethod) (*Receipt, error) {
	if _, err := order.ParsePaymentMethod(string(method)); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err := e.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		c, err := s.Carts.GetByUser(ctx, userID)
		if err != nil {
			return err
		}

		lines, err := s.Carts.Lines(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "load cart lines")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Validate each line against the catalog and snapshot the price.
		// Quantities downstream all derive from this one read of the cart.
		orderID := uuid.New().String()
		orderLines := make([]order.Line, len(lines))
		total := decimal.Zero
		for i, ln := range lines {
			p, err := s.Products.GetByID(ctx, ln.ProductID)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return &ProductNotFoundError{ProductID: ln.ProductID}
				}
				return errors.Wrapf(err, "get product %s", ln.ProductID)
			}
			if p.Stock < ln.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Name:      p.Name,
					Requested: ln.Quantity,
					Available: p.Stock,
				}
			}

			qty := decimal.NewFromInt(int64(ln.Quantity))
			total = total.Add(p.Price.Mul(qty))

			orderLines[i] = order.Line{
				ID:        uuid.New().String(),
				OrderID:   orderID,
				ProductID: p.ID,
				Quantity:  ln.Quantity,
				UnitPrice: p.Price,
			}
		}

		o := &order.Order{
			ID:            orderID,
			UserID:        userID,
			TotalAmount:   total.Round(2),
			Status:        order.StatusPending,
			PaymentMethod: method,
		}
		if err := s.Orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := s.Orders.CreateLines(ctx, orderLines); err != nil {
			return errors.Wrap(err, "create order lines")
		}

		// Reserve stock. The conditional decrement re-checks availability at
		// write time, closing the race where a concurrent checkout consumed
		// the stock after our read above.
		for i, ln := range lines {
			ok, err := s.Products.DecrementStock(ctx, ln.ProductID, ln.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock for product %s", ln.ProductID)
			}
			if !ok {
				return e.insufficientStock(ctx, s, orderLines[i], ln.Quantity)
			}
		}

		if err := s.Carts.DeleteLines(ctx, c.ID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		receipt = &Receipt{Order: *o, Lines: orderLines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// insufficientStock builds the error for a failed conditional decrement,
// re-reading the product so the reported availability reflects what the
// concurrent winner left behind.
func (e *Engine) insufficientStock(ctx context.Context, s Stores, ln order.Line, requested int) error {
	stockErr := &InsufficientStockError{
		ProductID: ln.ProductID,
		Name:      ln.ProductID,
		Requested: requested,
	}
	if p, err := s.Products.GetByID(ctx, ln.ProductID); err == nil {
		stockErr.Name = p.Name
		stockErr.Available = p.Stock
	}
	return stockErr
}
