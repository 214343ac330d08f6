package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/aurashop/storefront/internal/domain/product"
)

// listProducts returns available products, optionally filtered by category
// and search query.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := product.Filter{
		CategoryID: q.Get("category"),
		Search:     q.Get("search"),
	}

	products, err := h.products.List(r.Context(), f)
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list products"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			h.encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

// getProduct returns a single product by ID.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.serverError(w, r, errors.Wrapf(err, "get product %s", id))
		return
	}
	if !p.Available {
		// Disabled products are hidden from the public catalog.
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, *p)
	})
}

// listCategories returns every category.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list categories"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range categories {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(c.ID)
			e.FieldStart("name")
			e.Str(c.Name)
			e.FieldStart("slug")
			e.Str(c.Slug)
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

// encodeProduct writes the public product representation. Prices are emitted
// as fixed two-decimal strings.
func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Str(p.Price.StringFixed(2))
	e.FieldStart("category")
	e.Str(p.CategoryID)
	e.FieldStart("image")
	e.Str(h.imageBaseURL + p.ImageURL)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.ObjEnd()
}

// serverError logs the error and writes a generic 500 response.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
