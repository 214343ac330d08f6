package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/aurashop/storefront/internal/domain/auth"
)

// apiKeyHeader carries the client's API key on order endpoints.
const apiKeyHeader = "api_key"

// APIKeyAuth returns middleware authenticating requests via HMAC-SHA256
// hashed API keys. The key from the request header is hashed with the pepper,
// looked up in the repository, and compared in constant time to prevent
// timing attacks.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels even
			// though the lookup already succeeded: the stored hash could differ
			// from what we computed if the repository returns a stale/wrong row.
			storedBytes, err := hex.DecodeString(info.KeyHash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
