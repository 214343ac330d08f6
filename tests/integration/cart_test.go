//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCart_MissingSession(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCart_Lifecycle(t *testing.T) {
	session := map[string]string{sessionIDKey: "it-cart-lifecycle"}

	// Add two candles.
	resp := doRequest(t, http.MethodPost, "/api/cart/items",
		map[string]any{"productId": "prod-santal-candle", "quantity": 2}, session)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/cart", nil, session)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Items))
	}
	if cart.Total != "90.00" {
		t.Errorf("total: got %q, want %q", cart.Total, "90.00")
	}

	// Raise the quantity.
	resp = doRequest(t, http.MethodPut, "/api/cart/items/prod-santal-candle",
		map[string]any{"quantity": 3}, session)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/cart", nil, session)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.Total != "135.00" {
		t.Errorf("total after update: got %q, want %q", cart.Total, "135.00")
	}

	// Remove the line.
	resp = doRequest(t, http.MethodDelete, "/api/cart/items/prod-santal-candle", nil, session)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/cart", nil, session)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(cart.Items))
	}
}

func TestCart_AddUnknownProduct(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/cart/items",
		map[string]any{"productId": "prod-missing", "quantity": 1},
		map[string]string{sessionIDKey: "it-cart-unknown"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	a := map[string]string{sessionIDKey: "it-cart-a"}
	b := map[string]string{sessionIDKey: "it-cart-b"}

	resp := doRequest(t, http.MethodPost, "/api/cart/items",
		map[string]any{"productId": "prod-santal-candle", "quantity": 1}, a)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add: expected 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/cart", nil, b)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 0 {
		t.Errorf("session b sees %d lines from session a", len(cart.Items))
	}
}
