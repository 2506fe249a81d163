// Package handler exposes the storefront over HTTP: public catalog, cart,
// and checkout routes, plus API-key-protected admin routes.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mastecno/storefront/internal/domain/auth"
	"github.com/mastecno/storefront/internal/domain/cart"
	"github.com/mastecno/storefront/internal/domain/order"
	"github.com/mastecno/storefront/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler wires the domain services to HTTP routes.
type Handler struct {
	products     product.Repository
	orders       *order.Service
	carts        cart.Store
	apikeys      auth.Repository
	pepper       []byte
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	orders *order.Service,
	carts cart.Store,
	apikeys auth.Repository,
	pepper []byte,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		carts:        carts,
		apikeys:      apikeys,
		pepper:       pepper,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the /api router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)

	r.Route("/carts/{cartID}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/lines", h.AddCartLine)
		r.Patch("/lines/{lineKey}", h.UpdateCartLine)
		r.Delete("/lines/{lineKey}", h.RemoveCartLine)
	})

	r.Post("/orders", h.PlaceOrder)

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAPIKey)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderID}", h.GetOrder)
		r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
		r.Post("/products", h.UpsertProduct)
		r.Put("/products/{productID}", h.UpsertProduct)
		r.Delete("/products/{productID}", h.DeleteProduct)
	})

	return r
}
