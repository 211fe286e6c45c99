package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/shopcart-api/internal/domain/cart"
)

// addCartLineRequest is the body for POST /api/cart.
type addCartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// cartLineResponse is the JSON shape for a cart line.
type cartLineResponse struct {
	ID        string `json:"id"`
	CartID    string `json:"cartId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func toCartLineResponse(ln cart.Line) cartLineResponse {
	return cartLineResponse{
		ID:        ln.ID,
		CartID:    ln.CartID,
		ProductID: ln.ProductID,
		Quantity:  ln.Quantity,
	}
}

// addCartLine adds a product to the caller's cart, creating the cart on first
// use. Adding a product already in the cart increments its quantity.
func (h *Handler) addCartLine(w http.ResponseWriter, r *http.Request) {
	var req addCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.ProductID == "" || req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "productId and a quantity of at least 1 are required", nil)
		return
	}

	ctx := r.Context()
	userID := UserIDFromContext(ctx)

	// Reject unknown products up front; stock is not checked here. The cart
	// is a staging area and availability is only authoritative at checkout.
	if _, err := h.products.GetByID(ctx, req.ProductID); err != nil {
		respondDomainError(w, r, err)
		return
	}

	c, err := h.carts.GetOrCreate(ctx, userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	ln, err := h.carts.UpsertLine(ctx, c.ID, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartLineResponse(*ln))
}

// viewCart returns the caller's cart lines. A user without a cart sees an
// empty one rather than an error.
func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.carts.GetByUser(ctx, UserIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			respondJSON(w, http.StatusOK, []cartLineResponse{})
			return
		}
		respondDomainError(w, r, err)
		return
	}

	lines, err := h.carts.Lines(ctx, c.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]cartLineResponse, len(lines))
	for i, ln := range lines {
		resp[i] = toCartLineResponse(ln)
	}
	respondJSON(w, http.StatusOK, resp)
}

// updateCartLineRequest is the body for PUT /api/cart/{id}.
type updateCartLineRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartLine sets the quantity of an existing line in the caller's cart.
func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request) {
	var req updateCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "quantity must be at least 1", nil)
		return
	}

	ctx := r.Context()
	c, err := h.carts.GetByUser(ctx, UserIDFromContext(ctx))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	ln, err := h.carts.UpdateLineQuantity(ctx, c.ID, r.PathValue("id"), req.Quantity)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartLineResponse(*ln))
}

// removeCartLine deletes a line from the caller's cart.
func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.carts.GetByUser(ctx, UserIDFromContext(ctx))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.carts.DeleteLine(ctx, c.ID, r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
