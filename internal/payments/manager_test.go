package payments

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	lastReq       AuthorizeRequest
	called        bool
	authorization Authorization
	err           error
}

func (f *fakeProvider) Authorize(_ context.Context, req AuthorizeRequest) (Authorization, error) {
	f.called = true
	f.lastReq = req
	return f.authorization, f.err
}

func TestManagerAuthorizeUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{authorization: Authorization{IntentID: "pi_stripe"}}
	mock := &fakeProvider{authorization: Authorization{IntentID: "pi_mock"}}

	mgr, err := NewManager(map[string]Provider{
		"stripe": stripe,
		"mock":   mock,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	authorization, err := mgr.Authorize(ctx, PaymentContext{PreferredProvider: "mock"}, AuthorizeRequest{Token: "tok_1"})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if authorization.Provider != "mock" {
		t.Fatalf("expected provider 'mock', got %q", authorization.Provider)
	}
	if !mock.called {
		t.Fatalf("expected mock provider to handle call")
	}
	if stripe.called {
		t.Fatalf("expected stripe provider to remain unused")
	}
}

func TestManagerRejectsUnknownPreferredProvider(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(map[string]Provider{"stripe": &fakeProvider{}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, err = mgr.Authorize(ctx, PaymentContext{PreferredProvider: "unknown"}, AuthorizeRequest{Token: "tok_1"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{}
	mock := &fakeProvider{}

	mgr, err := NewManager(
		map[string]Provider{
			"stripe": stripe,
			"mock":   mock,
		},
		WithCurrencyRoutes(map[string]string{"JPY": "mock"}),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	authorization, err := mgr.Authorize(ctx, PaymentContext{Currency: "JPY"}, AuthorizeRequest{Token: "tok_1", Currency: "jpy"})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if authorization.Provider != "mock" {
		t.Fatalf("expected provider 'mock', got %q", authorization.Provider)
	}
	if !mock.called {
		t.Fatalf("expected mock provider to handle call")
	}
}

func TestManagerFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	stripe := &fakeProvider{authorization: Authorization{Provider: "stripe", IntentID: "pi_123"}}

	mgr, err := NewManager(map[string]Provider{"stripe": stripe})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	authorization, err := mgr.Authorize(ctx, PaymentContext{}, AuthorizeRequest{Token: "tok_1"})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !stripe.called {
		t.Fatalf("expected authorize to invoke default provider")
	}
	if authorization.Provider != "stripe" {
		t.Fatalf("unexpected provider: %q", authorization.Provider)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(map[string]Provider{"bad": nil}); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error when providers empty")
	}
}

func TestMockProviderDeclines(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC) }
	provider := NewMockProvider(clock)

	_, err := provider.Authorize(context.Background(), AuthorizeRequest{SessionID: "cs_1", Token: "decline_token"})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestMockProviderAuthorizes(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC) }
	provider := NewMockProvider(clock)

	first, err := provider.Authorize(context.Background(), AuthorizeRequest{SessionID: "cs_1", Token: "tok_1", Amount: 863, Currency: "USD"})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if first.Status != StatusAuthorized {
		t.Fatalf("expected authorized status, got %q", first.Status)
	}
	if first.Currency != "usd" {
		t.Fatalf("expected lowercase currency, got %q", first.Currency)
	}

	second, err := provider.Authorize(context.Background(), AuthorizeRequest{SessionID: "cs_1", Token: "tok_1", Amount: 863, Currency: "USD"})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if first.IntentID != second.IntentID {
		t.Fatalf("expected deterministic intent id, got %q and %q", first.IntentID, second.IntentID)
	}
}
