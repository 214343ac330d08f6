package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/aurashop/storefront/internal/domain/inventory"
	"github.com/aurashop/storefront/internal/domain/order"
)

type customerRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	// Price is accepted for compatibility with older storefront clients and
	// deliberately never read: every line is repriced from the catalog.
	Price json.RawMessage `json:"price,omitempty"`
}

type orderRequest struct {
	Customer customerRequest    `json:"customer"`
	Items    []orderItemRequest `json:"items"`
}

// placeOrder converts the request into a domain placement, delegating cart
// resolution to the session store when no explicit items are given.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]order.CartLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = order.CartLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	// No explicit items: check out the session cart.
	fromCart := false
	sid := r.Header.Get(sessionHeader)
	if len(lines) == 0 && sid != "" {
		snapshot, err := h.carts.Get(r.Context(), sid)
		if err != nil {
			h.serverError(w, r, errors.Wrap(err, "read cart for checkout"))
			return
		}
		lines = make([]order.CartLine, len(snapshot))
		for i, l := range snapshot {
			lines[i] = order.CartLine{ProductID: l.ProductID, Quantity: l.Quantity}
		}
		fromCart = true
	}

	o, err := h.orderService.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Customer: order.CustomerInfo{
			FirstName:  req.Customer.FirstName,
			LastName:   req.Customer.LastName,
			Email:      req.Customer.Email,
			Address:    req.Customer.Address,
			City:       req.Customer.City,
			PostalCode: req.Customer.PostalCode,
		},
		Lines: lines,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	// The order is durable; an undrained cart is only a cosmetic leftover.
	if fromCart {
		if err := h.carts.Clear(r.Context(), sid); err != nil {
			zctx.From(r.Context()).Warn("clear cart after checkout",
				zap.String("order_id", o.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// getOrder returns a previously placed order.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.serverError(w, r, errors.Wrapf(err, "get order %s", id))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// writeOrderError maps domain placement errors onto the transport. Validation
// failures carry the complete per-product detail so the storefront can render
// the whole diagnosis in one pass.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyCart) {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	var iq *inventory.InvalidQuantityError
	if errors.As(err, &iq) {
		writeError(w, http.StatusUnprocessableEntity, iq.Error())
		return
	}

	var ue *inventory.UnavailableError
	if errors.As(err, &ue) {
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("code")
			e.Int(http.StatusUnprocessableEntity)
			e.FieldStart("message")
			e.Str("some products are not available")
			e.FieldStart("products")
			e.ArrStart()
			for _, id := range ue.ProductIDs {
				e.ObjStart()
				e.FieldStart("productId")
				e.Str(id)
				e.ObjEnd()
			}
			e.ArrEnd()
			e.ObjEnd()
		})
		return
	}

	var ise *inventory.InsufficientStockError
	if errors.As(err, &ise) {
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("code")
			e.Int(http.StatusUnprocessableEntity)
			e.FieldStart("message")
			e.Str("insufficient stock")
			e.FieldStart("products")
			e.ArrStart()
			for _, s := range ise.Shortfalls {
				e.ObjStart()
				e.FieldStart("productId")
				e.Str(s.ProductID)
				e.FieldStart("requested")
				e.Int(s.Requested)
				e.FieldStart("available")
				e.Int(s.Available)
				e.ObjEnd()
			}
			e.ArrEnd()
			e.ObjEnd()
		})
		return
	}

	h.serverError(w, r, err)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		e.Str(l.UnitPrice.StringFixed(2))
		e.FieldStart("subtotal")
		e.Str(l.Subtotal().StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
