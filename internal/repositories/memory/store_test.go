package memory

import (
	"context"
	"testing"
	"time"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/repositories"
)

func baseSession(id string) domain.CheckoutSession {
	return domain.CheckoutSession{
		ID:       id,
		Status:   domain.StatusNotReadyForPayment,
		Currency: "usd",
		Items:    []domain.Item{{ID: "item_123", Quantity: 1}},
	}
}

func auditEvent(sessionID string, at time.Time) domain.AuditEvent {
	return domain.AuditEvent{
		ActionID:  "act_0000000000000001",
		SessionID: sessionID,
		Timestamp: at,
		Actor:     domain.AuditActor{Type: domain.ActorAgent, ID: "agent-1"},
		Execution: domain.AuditExecution{Status: domain.ExecutionSucceeded, Service: "checkout"},
	}
}

func TestCommitMutationCreate(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)

	created, err := store.CommitMutation(context.Background(), repositories.Mutation{
		Session: baseSession("cs_1"),
		Event:   auditEvent("cs_1", now),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1 after create, got %d", created.Version)
	}

	got, err := store.GetSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "cs_1" || got.Status != domain.StatusNotReadyForPayment {
		t.Fatalf("unexpected session: %+v", got)
	}

	events, err := store.ListAuditEvents(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
}

func TestCommitMutationCreateConflict(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)

	if _, err := store.CommitMutation(context.Background(), repositories.Mutation{Session: baseSession("cs_1"), Event: auditEvent("cs_1", now)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := store.CommitMutation(context.Background(), repositories.Mutation{Session: baseSession("cs_1"), Event: auditEvent("cs_1", now)})
	if err == nil {
		t.Fatal("expected conflict creating duplicate session")
	}
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok || !repoErr.IsConflict() {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCommitMutationVersionConflict(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)

	created, err := store.CommitMutation(context.Background(), repositories.Mutation{Session: baseSession("cs_1"), Event: auditEvent("cs_1", now)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First update from version 1 succeeds.
	updated := created
	updated.Status = domain.StatusReadyForPayment
	if _, err := store.CommitMutation(context.Background(), repositories.Mutation{Session: updated, ExpectedVersion: 1, Event: auditEvent("cs_1", now.Add(time.Second))}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second writer still holding version 1 must conflict.
	stale := created
	stale.Status = domain.StatusCanceled
	_, err = store.CommitMutation(context.Background(), repositories.Mutation{Session: stale, ExpectedVersion: 1, Event: auditEvent("cs_1", now.Add(2*time.Second))})
	if err == nil {
		t.Fatal("expected version conflict")
	}
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok || !repoErr.IsConflict() {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCommitMutationWithOrder(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)

	created, err := store.CommitMutation(context.Background(), repositories.Mutation{Session: baseSession("cs_1"), Event: auditEvent("cs_1", now)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	completed := created
	completed.Status = domain.StatusCompleted
	order := domain.Order{ID: "ord_1", CheckoutSessionID: "cs_1", Status: domain.OrderStatusCreated, CreatedAt: now}
	if _, err := store.CommitMutation(context.Background(), repositories.Mutation{
		Session:         completed,
		ExpectedVersion: 1,
		Order:           &order,
		Event:           auditEvent("cs_1", now.Add(time.Second)),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetOrder(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CheckoutSessionID != "cs_1" {
		t.Fatalf("unexpected order: %+v", got)
	}

	events, err := store.ListAuditEvents(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].Timestamp.After(events[1].Timestamp) {
		t.Fatal("audit events must be ordered by timestamp")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.GetSession(context.Background(), "cs_missing")
	if err == nil {
		t.Fatal("expected not found error")
	}
	repoErr, ok := err.(repositories.RepositoryError)
	if !ok || !repoErr.IsNotFound() {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestGetSessionReturnsCopy(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)

	session := baseSession("cs_1")
	session.Buyer = &domain.Buyer{FirstName: "Ada"}
	if _, err := store.CommitMutation(context.Background(), repositories.Mutation{Session: session, Event: auditEvent("cs_1", now)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, _ := store.GetSession(context.Background(), "cs_1")
	first.Buyer.FirstName = "mutated"
	first.Items[0].Quantity = 99

	second, _ := store.GetSession(context.Background(), "cs_1")
	if second.Buyer.FirstName != "Ada" {
		t.Fatal("stored buyer must not be affected by caller mutation")
	}
	if second.Items[0].Quantity != 1 {
		t.Fatal("stored items must not be affected by caller mutation")
	}
}

func TestCatalogGetProducts(t *testing.T) {
	catalog := NewCatalog(
		domain.Product{ID: "item_123", Title: "Widget", BasePrice: 500, Currency: "usd", Stock: 10},
	)

	products, err := catalog.GetProducts(context.Background(), []string{"item_123", "item_missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected only known products, got %d", len(products))
	}
	if _, ok := products["item_123"]; !ok {
		t.Fatal("expected item_123 present")
	}
}
