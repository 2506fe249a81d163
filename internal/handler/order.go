package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mastecno/storefront/internal/domain/cart"
	"github.com/mastecno/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	CartID string      `json:"cartId"`
	Buyer  order.Buyer `json:"buyer"`
	Lines  []cart.Line `json:"lines"`
}

type placeOrderResponse struct {
	OrderID string  `json:"orderId"`
	Total   float64 `json:"total"`
}

// PlaceOrder checks out either a server-side cart referenced by cartId or
// the lines sent inline. When a cartId is given its stored lines win; the
// cart is cleared only after the order commits.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	ctx := r.Context()
	cartID := strings.TrimSpace(req.CartID)
	lines := cart.NormalizeLines(req.Lines)
	if cartID != "" {
		stored, err := h.carts.Load(ctx, cartID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		lines = stored
	}

	res, err := h.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
		Lines: lines,
		Buyer: req.Buyer,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if cartID != "" {
		if err := h.carts.Delete(ctx, cartID); err != nil {
			// The order is already durable. A stale cart is recoverable;
			// failing the request here would suggest the checkout failed.
			zctx.From(ctx).Warn("clear cart after checkout",
				zap.String("cart_id", cartID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID: res.OrderID,
		Total:   res.Total.InexactFloat64(),
	})
}

type orderResponse struct {
	ID        string       `json:"id"`
	Buyer     order.Buyer  `json:"buyer"`
	Lines     []order.Line `json:"lines"`
	Total     float64      `json:"total"`
	Status    string       `json:"status"`
	CreatedAt string       `json:"createdAt"`
	UpdatedAt string       `json:"updatedAt"`
}

func orderView(o order.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Buyer:     o.Buyer,
		Lines:     o.Lines,
		Total:     o.Total.InexactFloat64(),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	id := chi.URLParam(r, "orderID")
	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(*o))
}
