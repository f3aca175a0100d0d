package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func healthClock() func() time.Time {
	at := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestHealthzReportsOK(t *testing.T) {
	h := NewHealthHandlers(WithHealthClock(healthClock()))

	rr := httptest.NewRecorder()
	h.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status: %v", body)
	}
	if body["timestamp"] != "2026-01-30T12:00:00Z" {
		t.Fatalf("unexpected timestamp: %v", body)
	}
}

func TestReadyzWithHealthyStore(t *testing.T) {
	h := NewHealthHandlers(WithReadinessPinger(stubPinger{}), WithHealthClock(healthClock()))

	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyzWithFailingStore(t *testing.T) {
	h := NewHealthHandlers(
		WithReadinessPinger(stubPinger{err: errors.New("connection refused")}),
		WithHealthClock(healthClock()),
	)

	rr := httptest.NewRecorder()
	h.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["type"] != "service_unavailable" || errBody["code"] != "not_ready" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}
