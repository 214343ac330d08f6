package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_OrdersOutsideIn(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestNoop_PassesThrough(t *testing.T) {
	w := doRequest(Noop(okHandler()), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := doRequest(h, "", nil)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReusesValidIncoming(t *testing.T) {
	h := RequestID()(okHandler())
	w := doRequest(h, "", map[string]string{"X-Request-ID": "trace-123"})
	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesInvalidIncoming(t *testing.T) {
	h := RequestID()(okHandler())
	w := doRequest(h, "", map[string]string{"X-Request-ID": "bad\x01id"})
	assert.NotEqual(t, "bad\x01id", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := doRequest(h, "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
