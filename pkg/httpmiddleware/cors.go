package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin resource sharing for the API.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to call the API. Empty or a single
	// "*" entry allows any origin.
	AllowOrigins []string
	// AllowMethods lists permitted methods. Defaults to the storefront verbs
	// (GET, POST, PUT, DELETE, OPTIONS) when empty.
	AllowMethods []string
	// AllowHeaders lists permitted request headers. When empty, preflight
	// responses echo Access-Control-Request-Headers back.
	AllowHeaders []string
	// ExposeHeaders lists response headers readable by browser scripts.
	ExposeHeaders []string
	// AllowCredentials permits cookies and auth headers. Incompatible with a
	// wildcard origin, so enabling it switches to per-origin echo.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header.
	MaxAge int
}

type corsPolicy struct {
	wildcard      bool
	origins       map[string]string
	methods       string
	headers       string
	exposeHeaders string
	credentials   bool
	maxAge        string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		wildcard:      len(cfg.AllowOrigins) == 0,
		origins:       make(map[string]string, len(cfg.AllowOrigins)),
		methods:       strings.Join(cfg.AllowMethods, ", "),
		headers:       strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
		credentials:   cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.wildcard = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	// Wildcard plus credentials is rejected by browsers, echo instead.
	if p.credentials {
		p.wildcard = false
	}
	if p.methods == "" {
		p.methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin resolves the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not permitted.
func (p *corsPolicy) allowOrigin(origin string) string {
	if p.wildcard {
		return "*"
	}
	return p.origins[strings.ToLower(origin)]
}

// CORS returns middleware implementing the CORS protocol: preflight OPTIONS
// handling, Vary headers for caches, and per-origin or wildcard allow
// responses.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				if !p.wildcard {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				p.preflight(w, r, origin)
				return
			}

			if !p.wildcard {
				w.Header().Add("Vary", "Origin")
			}
			if allow := p.allowOrigin(origin); allow != "" {
				w.Header().Set("Access-Control-Allow-Origin", allow)
				if p.credentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if p.exposeHeaders != "" {
					w.Header().Set("Access-Control-Expose-Headers", p.exposeHeaders)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	allow := p.allowOrigin(origin)
	if allow == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", p.methods)
	switch {
	case p.headers != "":
		h.Set("Access-Control-Allow-Headers", p.headers)
	default:
		if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
			h.Set("Access-Control-Allow-Headers", req)
		}
	}
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}
