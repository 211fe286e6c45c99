// Package handler exposes the REST API: product catalog reads, cart
// management, and checkout. Business rules live in the domain packages; this
// layer only decodes requests, resolves the caller, and maps domain errors to
// HTTP responses.
package handler

import (
	"net/http"

	"github.com/xenking/shopcart-api/internal/domain/auth"
	"github.com/xenking/shopcart-api/internal/domain/cart"
	"github.com/xenking/shopcart-api/internal/domain/checkout"
	"github.com/xenking/shopcart-api/internal/domain/order"
	"github.com/xenking/shopcart-api/internal/domain/product"
)

// Handler serves the API routes, delegating to the checkout engine and the
// domain repositories.
type Handler struct {
	engine   *checkout.Engine
	carts    cart.Repository
	products product.Repository
	orders   order.Repository
	tokens   auth.Repository
	pepper   []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
// pepper is the HMAC key used to hash bearer tokens before lookup.
func NewHandler(
	engine *checkout.Engine,
	carts cart.Repository,
	products product.Repository,
	orders order.Repository,
	tokens auth.Repository,
	pepper []byte,
) *Handler {
	return &Handler{
		engine:   engine,
		carts:    carts,
		products: products,
		orders:   orders,
		tokens:   tokens,
		pepper:   pepper,
	}
}

// Routes returns the API route table. Every /api route requires a bearer
// token; health endpoints are registered separately by the caller.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /api/product", h.authenticated(h.listProducts))
	mux.Handle("GET /api/product/{id}", h.authenticated(h.getProduct))

	mux.Handle("POST /api/cart", h.authenticated(h.addCartLine))
	mux.Handle("GET /api/cart", h.authenticated(h.viewCart))
	mux.Handle("PUT /api/cart/{id}", h.authenticated(h.updateCartLine))
	mux.Handle("DELETE /api/cart/{id}", h.authenticated(h.removeCartLine))

	mux.Handle("POST /api/order", h.authenticated(h.placeOrder))
	mux.Handle("GET /api/order", h.authenticated(h.listOrders))
	mux.Handle("GET /api/order/{id}", h.authenticated(h.getOrder))

	return mux
}
