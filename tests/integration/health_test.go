//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestLivez(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	h := decodeJSON[healthResponse](t, resp)
	if h.Status != "ok" {
		t.Errorf("status: got %q, want %q", h.Status, "ok")
	}
}

func TestReadyz(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	h := decodeJSON[healthResponse](t, resp)
	if h.Status != "ok" {
		t.Errorf("status: got %q, want %q", h.Status, "ok")
	}
}

func TestRequestIDHeader(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}
}

func TestRateLimitHeaders(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("response missing X-RateLimit-Limit header")
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "" {
		t.Error("response missing X-RateLimit-Remaining header")
	}
}
