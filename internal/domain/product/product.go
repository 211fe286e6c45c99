package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Stock is the
// authoritative inventory counter; it is mutated only by checkout commits,
// never by cart operations.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	SellerID    string
	CreatedAt   time.Time
}

// Repository defines storage operations for the product catalog.
//
// DecrementStock is the inventory reservation primitive: it must perform an
// atomic conditional decrement (stock = stock - qty only when stock >= qty)
// and report whether a row was actually updated. Combined with the
// surrounding checkout transaction this rules out oversell under concurrent
// checkouts.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}
