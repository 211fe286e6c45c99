package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart lookups.
var (
	// ErrNotFound is returned when a user has no cart yet.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned when a cart line does not exist in the
	// user's cart.
	ErrLineNotFound = errors.New("cart line not found")
)

// Cart is a user's staging area for prospective purchases. Each user has at
// most one cart; it is created lazily on the first add and reused across
// checkouts (a successful checkout empties it but never deletes it).
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Line is a product plus quantity pending purchase. A cart holds at most one
// line per product; adding an existing product increments the quantity.
type Line struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
}

// Repository defines storage operations for carts and their lines.
type Repository interface {
	// GetByUser returns the user's cart, or ErrNotFound when none exists.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// GetOrCreate returns the user's cart, creating an empty one if needed.
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	// Lines returns all lines of the given cart.
	Lines(ctx context.Context, cartID string) ([]Line, error)
	// UpsertLine adds qty of productID to the cart, merging into an existing
	// line for the same product when present.
	UpsertLine(ctx context.Context, cartID, productID string, qty int) (*Line, error)
	// UpdateLineQuantity sets the quantity of an existing line. Returns
	// ErrLineNotFound when the line is not part of the cart.
	UpdateLineQuantity(ctx context.Context, cartID, lineID string, qty int) (*Line, error)
	// DeleteLine removes a single line. Returns ErrLineNotFound when the
	// line is not part of the cart.
	DeleteLine(ctx context.Context, cartID, lineID string) error
	// DeleteLines removes every line of the cart. The cart row persists.
	DeleteLines(ctx context.Context, cartID string) error
}
