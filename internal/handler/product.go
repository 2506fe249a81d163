package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mastecno/storefront/internal/domain/product"
)

type productResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category,omitempty"`
	Image    string  `json:"image,omitempty"`
}

func (h *Handler) productView(p product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		Stock:    p.Stock,
		Category: p.Category,
		Image:    h.imageURL(p.Image),
	}
}

// imageURL prefixes relative image paths with the configured base URL.
// Absolute URLs pass through untouched.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, h.productView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productView(*p))
}

type upsertProductRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
}

func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req upsertProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if id := chi.URLParam(r, "productID"); id != "" {
		req.ID = id
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" || req.Name == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_product", "product id and name are required")
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		writeErrorCode(w, http.StatusBadRequest, "invalid_product", "price and stock must not be negative")
		return
	}

	now := time.Now().UTC()
	p := product.Product{
		ID:        req.ID,
		Name:      req.Name,
		Price:     decimal.NewFromFloat(req.Price),
		Stock:     req.Stock,
		Category:  strings.ToLower(strings.TrimSpace(req.Category)),
		Image:     strings.TrimSpace(req.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.products.Upsert(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productView(p))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	if err := h.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
