package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// RequireAPIKey authenticates admin requests via the api_key header. The
// presented key is hashed with HMAC-SHA256 under the server pepper and looked
// up by hash, then compared in constant time to guard against timing
// side-channels on a stale or wrong row.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "api_key header is required")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(key))
		sum := mac.Sum(nil)

		info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(sum))
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
			writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
