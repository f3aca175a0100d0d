package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/services"
)

type stubCheckoutService struct {
	create   func(ctx context.Context, cmd services.CreateCheckoutCommand) (domain.CheckoutSession, error)
	get      func(ctx context.Context, id string) (domain.CheckoutSession, error)
	update   func(ctx context.Context, cmd services.UpdateCheckoutCommand) (domain.CheckoutSession, error)
	complete func(ctx context.Context, cmd services.CompleteCheckoutCommand) (domain.CheckoutSession, error)
	cancel   func(ctx context.Context, cmd services.CancelCheckoutCommand) (domain.CheckoutSession, error)
}

func (s *stubCheckoutService) Create(ctx context.Context, cmd services.CreateCheckoutCommand) (domain.CheckoutSession, error) {
	return s.create(ctx, cmd)
}

func (s *stubCheckoutService) Get(ctx context.Context, id string) (domain.CheckoutSession, error) {
	return s.get(ctx, id)
}

func (s *stubCheckoutService) Update(ctx context.Context, cmd services.UpdateCheckoutCommand) (domain.CheckoutSession, error) {
	return s.update(ctx, cmd)
}

func (s *stubCheckoutService) Complete(ctx context.Context, cmd services.CompleteCheckoutCommand) (domain.CheckoutSession, error) {
	return s.complete(ctx, cmd)
}

func (s *stubCheckoutService) Cancel(ctx context.Context, cmd services.CancelCheckoutCommand) (domain.CheckoutSession, error) {
	return s.cancel(ctx, cmd)
}

func (s *stubCheckoutService) GetOrder(context.Context, string) (domain.Order, error) {
	return domain.Order{}, services.ErrCheckoutNotFound
}

func (s *stubCheckoutService) ListAuditEvents(context.Context, string) ([]domain.AuditEvent, error) {
	return nil, nil
}

func sampleSession() domain.CheckoutSession {
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)
	return domain.CheckoutSession{
		ID:       "cs_test",
		Status:   domain.StatusNotReadyForPayment,
		Currency: "usd",
		Items:    []domain.Item{{ID: "item_123", Quantity: 1}},
		LineItems: []domain.LineItem{{
			ID:         "li_1",
			Item:       domain.Item{ID: "item_123", Quantity: 1},
			BaseAmount: 500,
			Subtotal:   500,
			Tax:        40,
			Total:      540,
		}},
		Totals: []domain.Total{
			{Type: domain.TotalTypeItemsBaseAmount, DisplayText: "Items", Amount: 500},
			{Type: domain.TotalTypeSubtotal, DisplayText: "Subtotal", Amount: 500},
			{Type: domain.TotalTypeTax, DisplayText: "Tax", Amount: 40},
			{Type: domain.TotalTypeTotal, DisplayText: "Total", Amount: 540},
		},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func newCheckoutServer(svc services.CheckoutService) http.Handler {
	return NewRouter(WithCheckoutRoutes(NewCheckoutHandlers(svc).Routes))
}

func decodeErrorEnvelope(t *testing.T, body *bytes.Buffer) map[string]string {
	t.Helper()
	var envelope struct {
		Error map[string]string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestCreateSessionReturns201(t *testing.T) {
	var gotCmd services.CreateCheckoutCommand
	svc := &stubCheckoutService{
		create: func(_ context.Context, cmd services.CreateCheckoutCommand) (domain.CheckoutSession, error) {
			gotCmd = cmd
			return sampleSession(), nil
		},
	}
	server := newCheckoutServer(svc)

	payload := `{"items":[{"id":"item_123","quantity":1}],"buyer":{"first_name":"Ada","email":"ada@example.com"}}`
	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions", bytes.NewBufferString(payload))
	req.Header.Set("Idempotency-Key", "idem-1")
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(gotCmd.Items) != 1 || gotCmd.Items[0].ID != "item_123" {
		t.Fatalf("unexpected items in command: %+v", gotCmd.Items)
	}
	if gotCmd.Buyer == nil || gotCmd.Buyer.FirstName != "Ada" {
		t.Fatalf("unexpected buyer in command: %+v", gotCmd.Buyer)
	}
	if gotCmd.Action.IdempotencyKey != "idem-1" {
		t.Fatalf("expected idempotency key in action context, got %q", gotCmd.Action.IdempotencyKey)
	}

	var resp sessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "cs_test" || resp.Status != "not_ready_for_payment" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.FulfillmentOptions == nil || resp.Messages == nil {
		t.Fatal("array fields must serialise as empty arrays, not null")
	}
}

func TestCreateSessionValidationError(t *testing.T) {
	svc := &stubCheckoutService{
		create: func(context.Context, services.CreateCheckoutCommand) (domain.CheckoutSession, error) {
			return domain.CheckoutSession{}, &services.ValidationError{Param: "$.items", Message: "at least one item is required"}
		},
	}
	server := newCheckoutServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["type"] != "invalid_request" || errBody["param"] != "$.items" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}

func TestCreateSessionRequiresBody(t *testing.T) {
	svc := &stubCheckoutService{}
	server := newCheckoutServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", rr.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	svc := &stubCheckoutService{
		get: func(context.Context, string) (domain.CheckoutSession, error) {
			return domain.CheckoutSession{}, services.ErrCheckoutNotFound
		},
	}
	server := newCheckoutServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/checkout_sessions/cs_missing", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "session_not_found" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}

func TestUpdateSessionPassesOptionID(t *testing.T) {
	var gotCmd services.UpdateCheckoutCommand
	svc := &stubCheckoutService{
		update: func(_ context.Context, cmd services.UpdateCheckoutCommand) (domain.CheckoutSession, error) {
			gotCmd = cmd
			session := sampleSession()
			session.Status = domain.StatusReadyForPayment
			return session, nil
		},
	}
	server := newCheckoutServer(svc)

	payload := `{"fulfillment_address":{"line_one":"1 Way","city":"London","country":"GB","postal_code":"N1"},"fulfillment_option_id":"ship_std"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions/cs_test", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotCmd.SessionID != "cs_test" {
		t.Fatalf("unexpected session id: %q", gotCmd.SessionID)
	}
	if gotCmd.FulfillmentOptionID == nil || *gotCmd.FulfillmentOptionID != "ship_std" {
		t.Fatalf("expected option id pointer, got %v", gotCmd.FulfillmentOptionID)
	}
	if gotCmd.Items != nil {
		t.Fatal("absent items must stay nil to preserve stored values")
	}
}

func TestCompleteSessionDeclined(t *testing.T) {
	svc := &stubCheckoutService{
		complete: func(context.Context, services.CompleteCheckoutCommand) (domain.CheckoutSession, error) {
			return domain.CheckoutSession{}, services.ErrCheckoutPaymentDeclined
		},
	}
	server := newCheckoutServer(svc)

	payload := `{"payment_data":{"token":"decline_token"}}`
	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions/cs_test/complete", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["type"] != "payment_declined" || errBody["code"] != "payment_declined" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}

func TestCancelTerminalSessionConflict(t *testing.T) {
	svc := &stubCheckoutService{
		cancel: func(context.Context, services.CancelCheckoutCommand) (domain.CheckoutSession, error) {
			return domain.CheckoutSession{}, services.ErrCheckoutTerminal
		},
	}
	server := newCheckoutServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions/cs_test/cancel", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["code"] != "session_terminal" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}

func TestCompleteOutOfStock(t *testing.T) {
	svc := &stubCheckoutService{
		complete: func(context.Context, services.CompleteCheckoutCommand) (domain.CheckoutSession, error) {
			return domain.CheckoutSession{}, services.ErrCheckoutOutOfStock
		},
	}
	server := newCheckoutServer(svc)

	payload := `{"payment_data":{"token":"tok_ok"}}`
	req := httptest.NewRequest(http.MethodPost, "/checkout_sessions/cs_test/complete", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	errBody := decodeErrorEnvelope(t, rr.Body)
	if errBody["type"] != "out_of_stock" {
		t.Fatalf("unexpected envelope: %v", errBody)
	}
}
