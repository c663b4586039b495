package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/promokart/internal/domain/auth"
)

// APIKeyMiddleware authenticates requests via HMAC-SHA256 hashed API keys
// passed in the api_key header.
type APIKeyMiddleware struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewAPIKeyMiddleware creates the middleware with the given API key
// repository and HMAC pepper.
func NewAPIKeyMiddleware(apikeys auth.Repository, pepper []byte) *APIKeyMiddleware {
	return &APIKeyMiddleware{apikeys: apikeys, pepper: pepper}
}

// Secure wraps next with API key authentication. The key is HMAC-hashed,
// looked up, and compared in constant time to guard against timing
// side-channels even when the lookup already succeeded.
func (m *APIKeyMiddleware) Secure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		mac := hmac.New(sha256.New, m.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := m.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
