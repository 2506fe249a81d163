package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mastecno/storefront/internal/domain/cart"
)

type cartResponse struct {
	CartID      string      `json:"cartId"`
	Lines       []cart.Line `json:"lines"`
	TotalItems  int         `json:"totalItems"`
	TotalAmount float64     `json:"totalAmount"`
}

func cartView(cartID string, c *cart.Cart) cartResponse {
	return cartResponse{
		CartID:      cartID,
		Lines:       c.Lines(),
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount().InexactFloat64(),
	}
}

func (h *Handler) loadCart(r *http.Request) (string, *cart.Cart, error) {
	cartID := chi.URLParam(r, "cartID")
	lines, err := h.carts.Load(r.Context(), cartID)
	if err != nil {
		return "", nil, err
	}
	return cartID, cart.New(lines), nil
}

// lineKeyParam decodes the {lineKey} path segment. Keys contain "|" so
// clients send them percent-encoded.
func lineKeyParam(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "lineKey"))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, c, err := h.loadCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cartID, c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if err := h.carts.Delete(r.Context(), cartID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addLineRequest struct {
	cart.ItemInput
	Quantity int `json:"quantity"`
}

func (h *Handler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	line := cart.Normalize(req.ItemInput)
	if line.ProductID == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_item", "item requires a product id")
		return
	}

	cartID, c, err := h.loadCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.Add(req.ItemInput, req.Quantity)
	if err := h.carts.Save(r.Context(), cartID, c.Lines()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cartID, c))
}

type updateLineRequest struct {
	Op       string `json:"op"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	key, err := lineKeyParam(r)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_line_key", "line key is not valid percent encoding")
		return
	}

	var req updateLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	cartID, c, err := h.loadCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Op)) {
	case "increment":
		c.Increment(key)
	case "decrement":
		c.Decrement(key)
	case "set":
		c.SetQuantity(key, req.Quantity)
	default:
		writeErrorCode(w, http.StatusBadRequest, "invalid_op", "op must be increment, decrement or set")
		return
	}

	if err := h.carts.Save(r.Context(), cartID, c.Lines()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cartID, c))
}

func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	key, err := lineKeyParam(r)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_line_key", "line key is not valid percent encoding")
		return
	}

	cartID, c, err := h.loadCart(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.Remove(key)
	if err := h.carts.Save(r.Context(), cartID, c.Lines()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(cartID, c))
}
