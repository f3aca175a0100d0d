package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/acp-commerce/api/internal/platform/httpx"
)

// SignatureHeader carries the base64 HMAC-SHA256 digest of the raw request body.
const SignatureHeader = "X-OpenAI-Signature"

// SignatureValidator verifies inbound request signatures when a shared secret
// is configured. An empty secret disables verification.
type SignatureValidator struct {
	secret []byte
	header string
}

// SignatureOption customises the validator.
type SignatureOption func(*SignatureValidator)

// WithSignatureHeader overrides the header carrying the digest.
func WithSignatureHeader(name string) SignatureOption {
	return func(v *SignatureValidator) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			v.header = trimmed
		}
	}
}

// NewSignatureValidator constructs a validator for the given shared secret.
func NewSignatureValidator(secret string, opts ...SignatureOption) *SignatureValidator {
	validator := &SignatureValidator{
		header: SignatureHeader,
	}
	if trimmed := strings.TrimSpace(secret); trimmed != "" {
		validator.secret = []byte(trimmed)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(validator)
		}
	}
	return validator
}

// Enabled reports whether signature verification is active.
func (v *SignatureValidator) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Sign computes the expected digest for a payload.
func (v *SignatureValidator) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the digest against the payload.
func (v *SignatureValidator) Verify(body []byte, signature string) bool {
	if !v.Enabled() {
		return true
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	expected := v.Sign(body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Middleware rejects requests whose body digest does not match the signature
// header. The body is restored for downstream handlers.
func (v *SignatureValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeServiceUnavailable, "request_body_unreadable", "unable to read request body", http.StatusInternalServerError))
					return
				}
				_ = r.Body.Close()
				body = data
				r.Body = io.NopCloser(bytes.NewReader(data))
			}

			if !v.Verify(body, r.Header.Get(v.header)) {
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeInvalidRequest, "invalid_signature", "request signature verification failed", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
