package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopcart-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, total_amount, status, payment_method)
		VALUES ($1, $2, $3, $4, $5)`

	createOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	listOrdersByUserSQL = `SELECT id, user_id, total_amount, status, payment_method, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	getOrderByIDSQL = `SELECT id, user_id, total_amount, status, payment_method, created_at
		FROM orders WHERE id = $1`

	listOrderLinesSQL = `SELECT id, order_id, product_id, quantity, unit_price
		FROM order_lines WHERE order_id = $1 ORDER BY product_id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository over the given pool or
// transaction.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order header.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.TotalAmount, string(o.Status), string(o.PaymentMethod),
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// CreateLines persists the order's line items. Callers always run this inside
// the checkout transaction, so per-line inserts stay atomic as a group.
func (r *OrderRepository) CreateLines(ctx context.Context, lines []order.Line) error {
	for _, ln := range lines {
		_, err := r.db.Exec(ctx, createOrderLineSQL,
			ln.ID, ln.OrderID, ln.ProductID, ln.Quantity, ln.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating order line for product %q: %w", ln.ProductID, err)
		}
	}
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// LinesByOrder returns the order's line items.
func (r *OrderRepository) LinesByOrder(ctx context.Context, orderID string) ([]order.Line, error) {
	rows, err := r.db.Query(ctx, listOrderLinesSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	return pgx.CollectRows(rows, scanOrderLine)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		total  decimal.Decimal
		status string
		method string
	)
	err := row.Scan(&o.ID, &o.UserID, &total, &status, &method, &o.CreatedAt)
	o.TotalAmount = total
	o.Status = order.Status(status)
	o.PaymentMethod = order.PaymentMethod(method)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var (
		ln    order.Line
		price decimal.Decimal
	)
	err := row.Scan(&ln.ID, &ln.OrderID, &ln.ProductID, &ln.Quantity, &price)
	ln.UnitPrice = price
	return ln, err
}
