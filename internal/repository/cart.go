package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shopcart-api/internal/domain/cart"
)

const (
	getCartByUserSQL = `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`

	createCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`

	// Stable product_id order so concurrent checkouts visit stock rows in the
	// same sequence and cannot deadlock on each other.
	getCartLinesSQL = `SELECT id, cart_id, product_id, quantity
		FROM cart_lines WHERE cart_id = $1 ORDER BY product_id`

	upsertCartLineSQL = `INSERT INTO cart_lines (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity`

	updateCartLineSQL = `UPDATE cart_lines SET quantity = $3
		WHERE id = $1 AND cart_id = $2
		RETURNING id, cart_id, product_id, quantity`

	deleteCartLineSQL  = `DELETE FROM cart_lines WHERE id = $1 AND cart_id = $2`
	deleteCartLinesSQL = `DELETE FROM cart_lines WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	db DB
}

// NewCartRepository returns a CartRepository over the given pool or transaction.
func NewCartRepository(db DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetByUser returns the user's cart, translating a missing row to
// cart.ErrNotFound.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.db.QueryRow(ctx, getCartByUserSQL, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// GetOrCreate returns the user's cart, lazily creating an empty one on the
// first call. The ON CONFLICT guard makes the create idempotent under
// concurrent first adds.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	c, err := r.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cart.ErrNotFound) {
		return nil, err
	}

	if _, err := r.db.Exec(ctx, createCartSQL, uuid.New().String(), userID); err != nil {
		return nil, fmt.Errorf("creating cart for user %q: %w", userID, err)
	}
	return r.GetByUser(ctx, userID)
}

// Lines returns all lines of the cart ordered by product ID.
func (r *CartRepository) Lines(ctx context.Context, cartID string) ([]cart.Line, error) {
	rows, err := r.db.Query(ctx, getCartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines: %w", err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// UpsertLine adds qty of productID to the cart, incrementing the quantity of
// an existing line for the same product instead of duplicating it.
func (r *CartRepository) UpsertLine(ctx context.Context, cartID, productID string, qty int) (*cart.Line, error) {
	rows, err := r.db.Query(ctx, upsertCartLineSQL, uuid.New().String(), cartID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("upserting cart line: %w", err)
	}

	ln, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("upserting cart line: %w", err)
	}
	return &ln, nil
}

// UpdateLineQuantity sets the quantity of an existing line.
func (r *CartRepository) UpdateLineQuantity(ctx context.Context, cartID, lineID string, qty int) (*cart.Line, error) {
	rows, err := r.db.Query(ctx, updateCartLineSQL, lineID, cartID, qty)
	if err != nil {
		return nil, fmt.Errorf("updating cart line %q: %w", lineID, err)
	}

	ln, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("updating cart line %q: %w", lineID, err)
	}
	return &ln, nil
}

// DeleteLine removes a single line from the cart.
func (r *CartRepository) DeleteLine(ctx context.Context, cartID, lineID string) error {
	tag, err := r.db.Exec(ctx, deleteCartLineSQL, lineID, cartID)
	if err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// DeleteLines removes every line of the cart, leaving the cart row in place.
func (r *CartRepository) DeleteLines(ctx context.Context, cartID string) error {
	if _, err := r.db.Exec(ctx, deleteCartLinesSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var ln cart.Line
	err := row.Scan(&ln.ID, &ln.CartID, &ln.ProductID, &ln.Quantity)
	return ln, err
}
