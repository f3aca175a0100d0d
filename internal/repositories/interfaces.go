package repositories

import (
	"context"

	"github.com/acp-commerce/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// Mutation bundles the state produced by one checkout operation. Implementations
// must commit the session, the audit event, and the order (when present) in a
// single atomic write: either all become visible or none do.
type Mutation struct {
	Session domain.CheckoutSession
	// ExpectedVersion is the session version the mutation was computed from.
	// Zero means the session must not exist yet (create).
	ExpectedVersion int64
	Order           *domain.Order
	Event           domain.AuditEvent
}

// CheckoutRepository persists checkout sessions, their audit trail, and orders.
type CheckoutRepository interface {
	GetSession(ctx context.Context, id string) (domain.CheckoutSession, error)
	// CommitMutation applies the mutation atomically. A version mismatch
	// surfaces as a conflict RepositoryError.
	CommitMutation(ctx context.Context, mutation Mutation) (domain.CheckoutSession, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	// AppendEvent records an audit event without touching session state.
	// Used for rejected actions that never produce a session mutation.
	AppendEvent(ctx context.Context, event domain.AuditEvent) error
	ListAuditEvents(ctx context.Context, sessionID string) ([]domain.AuditEvent, error)
}

// CatalogRepository resolves product data for pricing and stock validation.
type CatalogRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// Pinger verifies backend connectivity for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}
