package services

import (
	"context"

	"github.com/acp-commerce/api/internal/domain"
)

// CheckoutService drives the checkout session lifecycle.
type CheckoutService interface {
	Create(ctx context.Context, cmd CreateCheckoutCommand) (domain.CheckoutSession, error)
	Get(ctx context.Context, sessionID string) (domain.CheckoutSession, error)
	Update(ctx context.Context, cmd UpdateCheckoutCommand) (domain.CheckoutSession, error)
	Complete(ctx context.Context, cmd CompleteCheckoutCommand) (domain.CheckoutSession, error)
	Cancel(ctx context.Context, cmd CancelCheckoutCommand) (domain.CheckoutSession, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListAuditEvents(ctx context.Context, sessionID string) ([]domain.AuditEvent, error)
}

// OrderEventEmitter publishes order lifecycle events after a successful commit.
// Implementations must not block the request path or roll back on failure.
type OrderEventEmitter interface {
	OrderCreated(ctx context.Context, order domain.Order)
	OrderUpdated(ctx context.Context, order domain.Order)
}

// ActionContext carries the audit metadata attached to every mutating command.
type ActionContext struct {
	ActorID        string
	ActorType      domain.ActorType
	Intent         *domain.AuditIntent
	IdempotencyKey string
}

// CreateCheckoutCommand opens a new session from requested items.
type CreateCheckoutCommand struct {
	Items              []domain.Item
	Buyer              *domain.Buyer
	FulfillmentAddress *domain.Address
	Action             ActionContext
}

// UpdateCheckoutCommand merges changes into an existing session. Nil fields
// keep the stored value.
type UpdateCheckoutCommand struct {
	SessionID           string
	Items               []domain.Item
	Buyer               *domain.Buyer
	FulfillmentAddress  *domain.Address
	FulfillmentOptionID *string
	Action              ActionContext
}

// CompleteCheckoutCommand charges the delegated payment token and produces an order.
type CompleteCheckoutCommand struct {
	SessionID       string
	PaymentToken    string
	PaymentProvider string
	Buyer           *domain.Buyer
	Action          ActionContext
}

// CancelCheckoutCommand cancels a non-terminal session.
type CancelCheckoutCommand struct {
	SessionID string
	Action    ActionContext
}
