//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts_SeededCatalog(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededCount {
		t.Fatalf("expected %d products, got %d", seededCount, len(products))
	}

	byID := make(map[string]productResponse, len(products))
	for _, p := range products {
		if p.Name == "" {
			t.Errorf("product %s has empty name", p.ID)
		}
		if p.Price == "" {
			t.Errorf("product %s has empty price", p.ID)
		}
		byID[p.ID] = p
	}

	lamp, ok := byID["prod-lumina-lamp"]
	if !ok {
		t.Fatal("prod-lumina-lamp missing from listing")
	}
	if lamp.Price != "129.50" {
		t.Errorf("lamp price: got %q, want %q", lamp.Price, "129.50")
	}
	if lamp.Category != "cat-home" {
		t.Errorf("lamp category: got %q, want %q", lamp.Category, "cat-home")
	}
}

func TestListProducts_CategoryFilter(t *testing.T) {
	resp := doGet(t, "/api/products?category=cat-accessories")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) == 0 {
		t.Fatal("expected at least one accessory")
	}
	for _, p := range products {
		if p.Category != "cat-accessories" {
			t.Errorf("product %s has category %q", p.ID, p.Category)
		}
	}
}

func TestListProducts_Search(t *testing.T) {
	resp := doGet(t, "/api/products?search=lamp")
	defer resp.Body.Close()

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 1 {
		t.Fatalf("expected 1 match, got %d", len(products))
	}
	if products[0].ID != "prod-lumina-lamp" {
		t.Errorf("got %q", products[0].ID)
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/prod-santal-candle")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "Santal & Vetiver Candle" {
		t.Errorf("name: got %q", p.Name)
	}
	if p.Price != "45.00" {
		t.Errorf("price: got %q, want %q", p.Price, "45.00")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/prod-missing")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	e := decodeJSON[errorResponse](t, resp)
	if e.Code != http.StatusNotFound {
		t.Errorf("error code: got %d", e.Code)
	}
}

func TestListCategories(t *testing.T) {
	resp := doGet(t, "/api/categories")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	categories := decodeJSON[[]categoryResponse](t, resp)
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories))
	}
}
