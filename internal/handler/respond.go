package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shopcart-api/internal/domain/cart"
	"github.com/xenking/shopcart-api/internal/domain/checkout"
	"github.com/xenking/shopcart-api/internal/domain/order"
	"github.com/xenking/shopcart-api/internal/domain/product"
)

// errorResponse is the JSON body for all error replies. Details carries
// machine-readable context for user-correctable errors (e.g. available stock).
type errorResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best effort: the status code is already written, so an encode failure
	// can only mean the client went away.
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string, details map[string]any) {
	respondJSON(w, status, errorResponse{Code: status, Message: message, Details: details})
}

// respondDomainError maps domain errors to HTTP responses. Expected,
// user-correctable errors keep their message; anything unrecognized is a
// storage fault and surfaces as an opaque 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		respondError(w, http.StatusNotFound, "cart not found", nil)
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "cart line not found", nil)
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart is empty", nil)
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "product not found", nil)
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found", nil)
	case errors.Is(err, order.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		var pnfErr *checkout.ProductNotFoundError
		if errors.As(err, &pnfErr) {
			respondError(w, http.StatusNotFound, pnfErr.Error(), map[string]any{
				"productId": pnfErr.ProductID,
			})
			return
		}

		var stockErr *checkout.InsufficientStockError
		if errors.As(err, &stockErr) {
			respondError(w, http.StatusBadRequest, stockErr.Error(), map[string]any{
				"productId": stockErr.ProductID,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			})
			return
		}

		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
