package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopcart-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, price, stock, seller_id, created_at
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, description, price, stock, seller_id, created_at
		FROM products WHERE id = $1`

	// Conditional decrement: the WHERE clause re-checks availability at write
	// time, so the update either reserves the full quantity or touches nothing.
	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, stock, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			seller_id = EXCLUDED.seller_id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository over the given pool or
// transaction.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// DecrementStock atomically reserves qty units of the product. It reports
// false without error when the product's stock cannot cover qty or the
// product does not exist; the caller decides whether that fails the
// surrounding transaction.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	tag, err := r.db.Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return false, fmt.Errorf("decrementing stock for product %q: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Upsert inserts or replaces a catalog entry. Used by the seeding tool, not
// part of product.Repository.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.db.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, nullIfEmpty(p.SellerID),
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		price    decimal.Decimal
		sellerID *string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &sellerID, &p.CreatedAt)
	p.Price = price
	if sellerID != nil {
		p.SellerID = *sellerID
	}
	return p, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
