package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/shopcart-api/internal/domain/order"
)

// placeOrderRequest is the body for POST /api/order.
type placeOrderRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// orderResponse is the JSON shape for an order header.
type orderResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	TotalAmount   float64   `json:"totalAmount"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// orderLineResponse is the JSON shape for an order line item.
type orderLineResponse struct {
	ID                  string  `json:"id"`
	OrderID             string  `json:"orderId"`
	ProductID           string  `json:"productId"`
	Quantity            int     `json:"quantity"`
	UnitPriceAtPurchase float64 `json:"unitPriceAtPurchase"`
}

// receiptResponse is the JSON shape for a successful checkout.
type receiptResponse struct {
	Order      orderResponse       `json:"order"`
	OrderLines []orderLineResponse `json:"orderLines"`
}

func toOrderResponse(o order.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount.InexactFloat64(),
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderLineResponses(lines []order.Line) []orderLineResponse {
	resp := make([]orderLineResponse, len(lines))
	for i, ln := range lines {
		resp[i] = orderLineResponse{
			ID:                  ln.ID,
			OrderID:             ln.OrderID,
			ProductID:           ln.ProductID,
			Quantity:            ln.Quantity,
			UnitPriceAtPurchase: ln.UnitPrice.InexactFloat64(),
		}
	}
	return resp
}

// placeOrder runs the checkout transaction for the caller's cart.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	receipt, err := h.engine.Checkout(r.Context(),
		UserIDFromContext(r.Context()),
		order.PaymentMethod(req.PaymentMethod),
	)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, receiptResponse{
		Order:      toOrderResponse(receipt.Order),
		OrderLines: toOrderLineResponses(receipt.Lines),
	})
}

// listOrders returns the caller's orders, newest first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	respondJSON(w, http.StatusOK, resp)
}

// getOrder returns one of the caller's orders with its lines. Another user's
// order is indistinguishable from a missing one.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.orders.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if o.UserID != UserIDFromContext(ctx) {
		respondDomainError(w, r, errors.Wrap(order.ErrNotFound, "foreign order"))
		return
	}

	lines, err := h.orders.LinesByOrder(ctx, o.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, receiptResponse{
		Order:      toOrderResponse(*o),
		OrderLines: toOrderLineResponses(lines),
	})
}
