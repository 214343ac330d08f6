// Package api implements the storefront's JSON HTTP surface. Handlers decode
// requests, delegate to the domain services and repositories, and map domain
// errors onto transport responses.
package api

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/aurashop/storefront/internal/domain/cart"
	"github.com/aurashop/storefront/internal/domain/order"
	"github.com/aurashop/storefront/internal/domain/product"
)

// sessionHeader carries the opaque cart session identifier.
const sessionHeader = "X-Session-ID"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler wires the HTTP routes to the domain layer.
type Handler struct {
	products     product.Repository
	categories   product.CategoryRepository
	carts        cart.Store
	orderService *order.Service
	orders       order.Repository
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	categories product.CategoryRepository,
	carts cart.Store,
	orderService *order.Service,
	orders order.Repository,
) *Handler {
	return &Handler{
		products:     products,
		categories:   categories,
		carts:        carts,
		orderService: orderService,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register adds all API routes to the mux. Order routes are wrapped with
// authn; pass httpmiddleware.Noop when running without API keys.
func (h *Handler) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/categories", h.listCategories)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.removeCartItem)

	mux.Handle("POST /api/orders", authn(http.HandlerFunc(h.placeOrder)))
	mux.Handle("GET /api/orders/{id}", authn(http.HandlerFunc(h.getOrder)))
}

// writeJSON encodes a response body with jx and writes it with the given
// status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard error envelope: {"code", "message"}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// sessionID extracts the cart session id, writing a 400 when absent.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing "+sessionHeader+" header")
		return "", false
	}
	return id, true
}
