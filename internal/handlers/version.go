package handlers

import (
	"net/http"
	"strings"

	"github.com/acp-commerce/api/internal/platform/httpx"
)

// APIVersionHeader names the protocol version header.
const APIVersionHeader = "API-Version"

const apiVersionParam = "$.headers.API-Version"

// APIVersionMiddleware enforces the protocol version header. Mutating requests
// must carry a supported version; reads tolerate a missing header but still
// reject an unsupported one.
func APIVersionMiddleware(supported []string) func(http.Handler) http.Handler {
	versions := make(map[string]struct{}, len(supported))
	for _, v := range supported {
		if v = strings.TrimSpace(v); v != "" {
			versions[v] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version := strings.TrimSpace(r.Header.Get(APIVersionHeader))
			if version == "" {
				if mutatingMethod(r.Method) {
					httpx.WriteError(r.Context(), w,
						httpx.NewError(httpx.TypeInvalidRequest, "missing_api_version", "API-Version header is required", http.StatusBadRequest).
							WithParam(apiVersionParam))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if len(versions) > 0 {
				if _, ok := versions[version]; !ok {
					httpx.WriteError(r.Context(), w,
						httpx.NewError(httpx.TypeInvalidRequest, "unsupported_api_version", "unsupported API version", http.StatusBadRequest).
							WithParam(apiVersionParam))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
