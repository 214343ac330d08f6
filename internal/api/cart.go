package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/aurashop/storefront/internal/domain/cart"
	"github.com/aurashop/storefront/internal/domain/product"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// getCart returns the session's cart lines with current catalog data and a
// running total. Lines referencing products that have since disappeared from
// the catalog are dropped from the view, mirroring how the storefront prunes
// dead cart entries.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "get cart"))
		return
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "get cart products"))
		return
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		total := decimal.Zero
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				continue
			}
			subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			total = total.Add(subtotal)

			e.ObjStart()
			e.FieldStart("product")
			h.encodeProduct(e, p)
			e.FieldStart("quantity")
			e.Int(l.Quantity)
			e.FieldStart("subtotal")
			e.Str(subtotal.StringFixed(2))
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("total")
		e.Str(total.StringFixed(2))
		e.ObjEnd()
	})
}

// addCartItem increments a product's quantity in the session cart.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "productId and a positive quantity are required")
		return
	}

	// The cart only accepts products the catalog can serve.
	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "product "+req.ProductID+" not found")
			return
		}
		h.serverError(w, r, errors.Wrap(err, "check cart product"))
		return
	}
	if !p.Available {
		writeError(w, http.StatusUnprocessableEntity, "product "+req.ProductID+" is not available")
		return
	}

	if err := h.carts.Add(r.Context(), sid, req.ProductID, req.Quantity); err != nil {
		h.serverError(w, r, errors.Wrap(err, "add cart item"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateCartItem sets the quantity for a product already in the cart. A zero
// quantity removes the line.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID := r.PathValue("productID")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.SetQuantity(r.Context(), sid, productID, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrNotInCart) {
			writeError(w, http.StatusNotFound, "product not in cart")
			return
		}
		h.serverError(w, r, errors.Wrap(err, "update cart item"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeCartItem deletes a line from the cart.
func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID := r.PathValue("productID")

	if err := h.carts.Remove(r.Context(), sid, productID); err != nil {
		if errors.Is(err, cart.ErrNotInCart) {
			writeError(w, http.StatusNotFound, "product not in cart")
			return
		}
		h.serverError(w, r, errors.Wrap(err, "remove cart item"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
