package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acp-commerce/api/internal/domain"
)

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "route_not_found" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodDelete, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "method_not_allowed" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}

func TestRouterCheckoutMiddlewareSkipsHealth(t *testing.T) {
	var hits int
	counting := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}
	svc := &stubCheckoutService{
		get: func(context.Context, string) (domain.CheckoutSession, error) {
			return sampleSession(), nil
		},
	}
	router := NewRouter(
		WithCheckoutRoutes(NewCheckoutHandlers(svc).Routes),
		WithCheckoutMiddlewares(counting),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if hits != 0 {
		t.Fatalf("health endpoint must bypass checkout middleware, hits=%d", hits)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/checkout_sessions/cs_test", nil))
	if hits != 1 {
		t.Fatalf("checkout endpoint must pass through checkout middleware, hits=%d", hits)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAPIVersionMiddleware(t *testing.T) {
	handler := APIVersionMiddleware([]string{"2026-01-30"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/checkout_sessions/cs_test", nil)
	req.Header.Set(APIVersionHeader, "2020-01-01")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported version, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "unsupported_api_version" || errBody["param"] != "$.headers.API-Version" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}

	req = httptest.NewRequest(http.MethodGet, "/checkout_sessions/cs_test", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("missing header on a read must pass, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/checkout_sessions", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing header on a mutation must be rejected, got %d", rr.Code)
	}
	errBody = decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "missing_api_version" || errBody["param"] != "$.headers.API-Version" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}

	req = httptest.NewRequest(http.MethodPost, "/checkout_sessions", nil)
	req.Header.Set(APIVersionHeader, "2026-01-30")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("supported version must pass, got %d", rr.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)
	handler := RateLimitMiddleware(1, time.Minute, func() time.Time { return now })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodGet, "/checkout_sessions/cs_test", nil)
	req.Header.Set("Authorization", "Bearer token-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first request must pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request within window must be limited, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "rate_limit_exceeded" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}

	other := httptest.NewRequest(http.MethodGet, "/checkout_sessions/cs_test", nil)
	other.Header.Set("Authorization", "Bearer token-b")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("separate caller must not be limited, got %d", rr.Code)
	}

	now = now.Add(2 * time.Minute)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("request after window reset must pass, got %d", rr.Code)
	}
}
