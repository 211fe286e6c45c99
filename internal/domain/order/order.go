package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrInvalidPaymentMethod is returned when a payment method is outside the
// supported set.
var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// Status tracks an order through its external lifecycle. The checkout engine
// only ever creates orders in StatusPending; later transitions belong to the
// payment and shipping flows.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// PaymentMethod enumerates the supported ways to pay for an order.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
	PaymentEsewa          PaymentMethod = "esewa"
	PaymentKhalti         PaymentMethod = "khalti"
)

// ParsePaymentMethod validates a client-supplied payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCashOnDelivery, PaymentCard, PaymentEsewa, PaymentKhalti:
		return m, nil
	default:
		return "", errors.Wrapf(ErrInvalidPaymentMethod, "%q", s)
	}
}

// Order is the immutable record of a committed purchase.
type Order struct {
	ID            string
	UserID        string
	TotalAmount   decimal.Decimal
	Status        Status
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}

// Line records what was bought at which price. UnitPrice is the product price
// captured at checkout time; later catalog price edits must never affect it.
type Line struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	CreateLines(ctx context.Context, lines []Line) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// GetByID returns the order, or ErrNotFound when it does not exist.
	GetByID(ctx context.Context, id string) (*Order, error)
	LinesByOrder(ctx context.Context, orderID string) ([]Line, error)
}
