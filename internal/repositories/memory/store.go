package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/repositories"
)

// Store is an in-memory CheckoutRepository used for tests and local development.
// Mutations follow the same atomicity and version semantics as the Firestore
// implementation.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.CheckoutSession
	orders   map[string]domain.Order
	events   map[string][]domain.AuditEvent
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.CheckoutSession),
		orders:   make(map[string]domain.Order),
		events:   make(map[string][]domain.AuditEvent),
	}
}

// GetSession returns a deep copy of the stored session.
func (s *Store) GetSession(_ context.Context, id string) (domain.CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.CheckoutSession{}, &storeError{op: "sessions.get", msg: fmt.Sprintf("session %s not found", id), notFound: true}
	}
	return cloneSession(session), nil
}

// CommitMutation applies the session, audit event, and optional order under one lock.
func (s *Store) CommitMutation(_ context.Context, mutation repositories.Mutation) (domain.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := mutation.Session.ID
	existing, exists := s.sessions[id]

	if mutation.ExpectedVersion == 0 {
		if exists {
			return domain.CheckoutSession{}, &storeError{op: "sessions.commit", msg: fmt.Sprintf("session %s already exists", id), conflict: true}
		}
	} else {
		if !exists {
			return domain.CheckoutSession{}, &storeError{op: "sessions.commit", msg: fmt.Sprintf("session %s not found", id), notFound: true}
		}
		if existing.Version != mutation.ExpectedVersion {
			return domain.CheckoutSession{}, &storeError{op: "sessions.commit", msg: fmt.Sprintf("session %s version %d does not match expected %d", id, existing.Version, mutation.ExpectedVersion), conflict: true}
		}
	}

	session := cloneSession(mutation.Session)
	session.Version = mutation.ExpectedVersion + 1
	s.sessions[id] = session

	if mutation.Order != nil {
		s.orders[mutation.Order.ID] = *mutation.Order
	}
	s.events[id] = append(s.events[id], mutation.Event)

	return cloneSession(session), nil
}

// GetOrder returns the stored order by id.
func (s *Store) GetOrder(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, &storeError{op: "orders.get", msg: fmt.Sprintf("order %s not found", id), notFound: true}
	}
	return order, nil
}

// AppendEvent records an audit event outside a session mutation.
func (s *Store) AppendEvent(_ context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.SessionID] = append(s.events[event.SessionID], event)
	return nil
}

// ListAuditEvents returns the session's audit trail ordered by timestamp.
func (s *Store) ListAuditEvents(_ context.Context, sessionID string) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[sessionID]
	out := make([]domain.AuditEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Ping implements readiness probing; the memory store is always available.
func (s *Store) Ping(context.Context) error {
	return nil
}

func cloneSession(session domain.CheckoutSession) domain.CheckoutSession {
	out := session
	out.Items = append([]domain.Item(nil), session.Items...)
	out.LineItems = append([]domain.LineItem(nil), session.LineItems...)
	out.FulfillmentOptions = append([]domain.FulfillmentOption(nil), session.FulfillmentOptions...)
	out.Totals = append([]domain.Total(nil), session.Totals...)
	out.Messages = append([]domain.Message(nil), session.Messages...)
	out.Links = append([]domain.Link(nil), session.Links...)
	if session.Buyer != nil {
		buyer := *session.Buyer
		out.Buyer = &buyer
	}
	if session.FulfillmentAddress != nil {
		address := *session.FulfillmentAddress
		out.FulfillmentAddress = &address
	}
	if session.PaymentProvider != nil {
		provider := *session.PaymentProvider
		provider.SupportedPaymentMethods = append([]string(nil), session.PaymentProvider.SupportedPaymentMethods...)
		out.PaymentProvider = &provider
	}
	if session.Order != nil {
		order := *session.Order
		out.Order = &order
	}
	return out
}

type storeError struct {
	op          string
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, e.msg)
}

func (e *storeError) IsNotFound() bool    { return e.notFound }
func (e *storeError) IsConflict() bool    { return e.conflict }
func (e *storeError) IsUnavailable() bool { return e.unavailable }
