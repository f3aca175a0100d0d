package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/acp-commerce/api/internal/platform/httpx"
)

// BearerValidator checks Authorization headers against a set of opaque API keys.
type BearerValidator struct {
	keys []string
}

// NewBearerValidator constructs a validator over the configured keys. An empty
// key set disables enforcement, which is only appropriate for local development.
func NewBearerValidator(keys []string) *BearerValidator {
	cleaned := make([]string, 0, len(keys))
	for _, key := range keys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return &BearerValidator{keys: cleaned}
}

// Enabled reports whether any API keys are configured.
func (v *BearerValidator) Enabled() bool {
	return v != nil && len(v.keys) > 0
}

// Validate checks the supplied Authorization header value.
func (v *BearerValidator) Validate(header string) bool {
	if !v.Enabled() {
		return true
	}
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok {
		return false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	for _, key := range v.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

// Middleware rejects requests lacking a valid bearer token.
func (v *BearerValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Validate(r.Header.Get("Authorization")) {
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeInvalidRequest, "unauthorized", "missing or invalid bearer token", http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
