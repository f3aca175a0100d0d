package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/acp-commerce/api/internal/domain"
)

func testOrder() domain.Order {
	return domain.Order{
		ID:                "ord_1",
		CheckoutSessionID: "cs_1",
		PermalinkURL:      "https://merchant.example.com/orders/ord_1",
		Status:            domain.OrderStatusCreated,
		CreatedAt:         time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookEmitterSignsAndDelivers(t *testing.T) {
	var mu sync.Mutex
	var gotBody []byte
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = body
		gotSignature = r.Header.Get(WebhookSignatureHeader)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	emitter, err := NewWebhookEmitter(WebhookEmitterConfig{
		URL:           server.URL,
		SigningSecret: "whsec_test",
	})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}

	emitter.OrderCreated(context.Background(), testOrder())
	emitter.Close()

	mu.Lock()
	defer mu.Unlock()

	var event OrderEvent
	if err := json.Unmarshal(gotBody, &event); err != nil {
		t.Fatalf("unmarshal delivered body: %v", err)
	}
	if event.Type != TypeOrderCreated {
		t.Fatalf("expected order_created, got %q", event.Type)
	}
	if event.Data.ID != "ord_1" || event.Data.Type != "order" {
		t.Fatalf("unexpected event data: %+v", event.Data)
	}

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(gotBody)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if gotSignature != want {
		t.Fatalf("signature mismatch: got %q want %q", gotSignature, want)
	}
}

func TestWebhookEmitterOmitsSignatureWithoutSecret(t *testing.T) {
	var mu sync.Mutex
	var gotSignature string
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotSignature = r.Header.Get(WebhookSignatureHeader)
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	emitter, err := NewWebhookEmitter(WebhookEmitterConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}

	emitter.OrderUpdated(context.Background(), testOrder())
	emitter.Close()

	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Fatalf("expected one delivery, got %d", hits)
	}
	if gotSignature != "" {
		t.Fatalf("expected no signature header, got %q", gotSignature)
	}
}

func TestWebhookEmitterLogsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var mu sync.Mutex
	var logged []string
	emitter, err := NewWebhookEmitter(WebhookEmitterConfig{
		URL: server.URL,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			mu.Lock()
			logged = append(logged, event)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}

	emitter.OrderCreated(context.Background(), testOrder())
	emitter.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(logged) != 1 || logged[0] != "events.webhook_failed" {
		t.Fatalf("expected failure log, got %v", logged)
	}
}

func TestNewWebhookEmitterRequiresURL(t *testing.T) {
	if _, err := NewWebhookEmitter(WebhookEmitterConfig{}); err == nil {
		t.Fatal("expected error for missing url")
	}
}
