package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/acp-commerce/api/internal/domain"
	platform "github.com/acp-commerce/api/internal/platform/firestore"
	"github.com/acp-commerce/api/internal/repositories"
)

const (
	defaultSessionCollection = "checkout_sessions"
	defaultOrderCollection   = "orders"
	auditSubcollection       = "audit_events"
)

// Store implements repositories.CheckoutRepository backed by Firestore.
// Audit events live in a subcollection under each session so that the
// session write, the order write, and the event append share one transaction.
type Store struct {
	provider *platform.Provider
	sessions string
	orders   string
}

// StoreOption customises collection names.
type StoreOption func(*Store)

// WithSessionCollection overrides the checkout session collection.
func WithSessionCollection(name string) StoreOption {
	return func(s *Store) {
		if strings.TrimSpace(name) != "" {
			s.sessions = name
		}
	}
}

// WithOrderCollection overrides the order collection.
func WithOrderCollection(name string) StoreOption {
	return func(s *Store) {
		if strings.TrimSpace(name) != "" {
			s.orders = name
		}
	}
}

// NewStore constructs a Firestore-backed checkout repository.
func NewStore(provider *platform.Provider, opts ...StoreOption) (*Store, error) {
	if provider == nil {
		return nil, errors.New("firestore store: provider is required")
	}
	store := &Store{
		provider: provider,
		sessions: defaultSessionCollection,
		orders:   defaultOrderCollection,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// GetSession fetches and decodes the session document.
func (s *Store) GetSession(ctx context.Context, id string) (domain.CheckoutSession, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return domain.CheckoutSession{}, platform.WrapError("sessions.get", err)
	}

	snap, err := client.Collection(s.sessions).Doc(id).Get(ctx)
	if err != nil {
		return domain.CheckoutSession{}, platform.WrapError("sessions.get", err)
	}

	var doc sessionDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("sessions.get: decode %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// CommitMutation applies the session, the audit event, and the optional order
// inside a single Firestore transaction guarded by the stored version.
func (s *Store) CommitMutation(ctx context.Context, mutation repositories.Mutation) (domain.CheckoutSession, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return domain.CheckoutSession{}, platform.WrapError("sessions.commit", err)
	}

	sessionRef := client.Collection(s.sessions).Doc(mutation.Session.ID)
	eventRef := sessionRef.Collection(auditSubcollection).Doc(mutation.Event.ActionID)

	var committed domain.CheckoutSession
	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(sessionRef)
		switch {
		case err != nil && status.Code(err) == codes.NotFound:
			if mutation.ExpectedVersion != 0 {
				return status.Errorf(codes.NotFound, "session %s not found", mutation.Session.ID)
			}
		case err != nil:
			return err
		default:
			if mutation.ExpectedVersion == 0 {
				return status.Errorf(codes.AlreadyExists, "session %s already exists", mutation.Session.ID)
			}
			var existing sessionDocument
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			if existing.Version != mutation.ExpectedVersion {
				return status.Errorf(codes.FailedPrecondition, "session %s version %d does not match expected %d", mutation.Session.ID, existing.Version, mutation.ExpectedVersion)
			}
		}

		session := mutation.Session
		session.Version = mutation.ExpectedVersion + 1
		if err := tx.Set(sessionRef, sessionDocumentFrom(session)); err != nil {
			return err
		}
		if mutation.Order != nil {
			orderRef := client.Collection(s.orders).Doc(mutation.Order.ID)
			if err := tx.Set(orderRef, orderDocumentFrom(*mutation.Order)); err != nil {
				return err
			}
		}
		if err := tx.Set(eventRef, auditDocumentFrom(mutation.Event)); err != nil {
			return err
		}

		committed = session
		return nil
	})
	if err != nil {
		return domain.CheckoutSession{}, platform.WrapError("sessions.commit", err)
	}
	return committed, nil
}

// GetOrder fetches and decodes an order document.
func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, platform.WrapError("orders.get", err)
	}

	snap, err := client.Collection(s.orders).Doc(id).Get(ctx)
	if err != nil {
		return domain.Order{}, platform.WrapError("orders.get", err)
	}

	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("orders.get: decode %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// AppendEvent records an audit event outside a session mutation. The event
// lands in the session's audit subcollection; Firestore permits subcollection
// documents under a parent that was never created, which covers rejected
// create attempts where no session document exists.
func (s *Store) AppendEvent(ctx context.Context, event domain.AuditEvent) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return platform.WrapError("audit.append", err)
	}

	ref := client.Collection(s.sessions).Doc(event.SessionID).
		Collection(auditSubcollection).Doc(event.ActionID)
	if _, err := ref.Set(ctx, auditDocumentFrom(event)); err != nil {
		return platform.WrapError("audit.append", err)
	}
	return nil
}

// ListAuditEvents returns the session's audit trail ordered by timestamp.
func (s *Store) ListAuditEvents(ctx context.Context, sessionID string) ([]domain.AuditEvent, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, platform.WrapError("audit.list", err)
	}

	query := client.Collection(s.sessions).Doc(sessionID).
		Collection(auditSubcollection).
		OrderBy("timestamp", firestore.Asc)

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, platform.WrapError("audit.list", err)
	}

	events := make([]domain.AuditEvent, 0, len(snaps))
	for _, snap := range snaps {
		var doc auditDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("audit.list: decode %s: %w", snap.Ref.ID, err)
		}
		events = append(events, doc.toDomain())
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// Ping verifies the backend responds to a lightweight query.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return platform.WrapError("ping", err)
	}
	_, err = client.Collection(s.sessions).Limit(1).Documents(ctx).GetAll()
	return platform.WrapError("ping", err)
}

type sessionDocument struct {
	ID                  string             `firestore:"id"`
	Status              string             `firestore:"status"`
	Currency            string             `firestore:"currency"`
	Items               []itemDocument     `firestore:"items"`
	LineItems           []lineItemDocument `firestore:"line_items"`
	Buyer               *buyerDocument     `firestore:"buyer"`
	FulfillmentAddress  *addressDocument   `firestore:"fulfillment_address"`
	FulfillmentOptions  []optionDocument   `firestore:"fulfillment_options"`
	FulfillmentOptionID string             `firestore:"fulfillment_option_id"`
	Totals              []totalDocument    `firestore:"totals"`
	Messages            []messageDocument  `firestore:"messages"`
	Links               []linkDocument     `firestore:"links"`
	PaymentProvider     *providerDocument  `firestore:"payment_provider"`
	Order               *orderRefDocument  `firestore:"order"`
	CreatedAt           time.Time          `firestore:"created_at"`
	UpdatedAt           time.Time          `firestore:"updated_at"`
	Version             int64              `firestore:"version"`
}

type itemDocument struct {
	ID       string `firestore:"id"`
	Quantity int64  `firestore:"quantity"`
}

type lineItemDocument struct {
	ID         string       `firestore:"id"`
	Item       itemDocument `firestore:"item"`
	BaseAmount int64        `firestore:"base_amount"`
	Discount   int64        `firestore:"discount"`
	Subtotal   int64        `firestore:"subtotal"`
	Tax        int64        `firestore:"tax"`
	Total      int64        `firestore:"total"`
}

type buyerDocument struct {
	FirstName   string `firestore:"first_name"`
	LastName    string `firestore:"last_name"`
	Email       string `firestore:"email"`
	PhoneNumber string `firestore:"phone_number"`
}

type addressDocument struct {
	Name       string `firestore:"name"`
	LineOne    string `firestore:"line_one"`
	LineTwo    string `firestore:"line_two"`
	City       string `firestore:"city"`
	State      string `firestore:"state"`
	Country    string `firestore:"country"`
	PostalCode string `firestore:"postal_code"`
}

type optionDocument struct {
	ID                  string `firestore:"id"`
	Type                string `firestore:"type"`
	Title               string `firestore:"title"`
	Subtitle            string `firestore:"subtitle"`
	Carrier             string `firestore:"carrier"`
	EarliestDeliveryETA string `firestore:"earliest_delivery_eta"`
	Subtotal            int64  `firestore:"subtotal"`
	Tax                 int64  `firestore:"tax"`
	Total               int64  `firestore:"total"`
}

type totalDocument struct {
	Type        string `firestore:"type"`
	DisplayText string `firestore:"display_text"`
	Amount      int64  `firestore:"amount"`
}

type messageDocument struct {
	Type        string `firestore:"type"`
	Code        string `firestore:"code"`
	ContentType string `firestore:"content_type"`
	Content     string `firestore:"content"`
	Param       string `firestore:"param"`
}

type linkDocument struct {
	Type string `firestore:"type"`
	URL  string `firestore:"url"`
}

type providerDocument struct {
	Provider                string   `firestore:"provider"`
	SupportedPaymentMethods []string `firestore:"supported_payment_methods"`
}

type orderRefDocument struct {
	ID                string `firestore:"id"`
	CheckoutSessionID string `firestore:"checkout_session_id"`
	PermalinkURL      string `firestore:"permalink_url"`
}

type orderDocument struct {
	ID                 string             `firestore:"id"`
	CheckoutSessionID  string             `firestore:"checkout_session_id"`
	PermalinkURL       string             `firestore:"permalink_url"`
	Status             string             `firestore:"status"`
	Currency           string             `firestore:"currency"`
	LineItems          []lineItemDocument `firestore:"line_items"`
	Totals             []totalDocument    `firestore:"totals"`
	Buyer              *buyerDocument     `firestore:"buyer"`
	FulfillmentAddress *addressDocument   `firestore:"fulfillment_address"`
	CreatedAt          time.Time          `firestore:"created_at"`
}

type auditDocument struct {
	ActionID    string         `firestore:"action_id"`
	SessionID   string         `firestore:"session_id"`
	Timestamp   time.Time      `firestore:"timestamp"`
	ActorType   string         `firestore:"actor_type"`
	ActorID     string         `firestore:"actor_id"`
	IntentType  string         `firestore:"intent_type"`
	Confidence  float64        `firestore:"intent_confidence"`
	Utterance   string         `firestore:"intent_user_utterance"`
	ActionType  string         `firestore:"action_type"`
	ActionInput map[string]any `firestore:"action_input"`
	Idempotency string         `firestore:"action_idempotency_key"`
	SchemaValid bool           `firestore:"verification_schema_valid"`
	Approved    bool           `firestore:"verification_approved"`
	FailReasons []string       `firestore:"verification_fail_reasons"`
	ExecStatus  string         `firestore:"execution_status"`
	ExecService string         `firestore:"execution_service"`
	ExecLatency int64          `firestore:"execution_latency_ms"`
	ExecResult  string         `firestore:"execution_result_ref"`
	ExecError   string         `firestore:"execution_error"`
}

func sessionDocumentFrom(session domain.CheckoutSession) sessionDocument {
	doc := sessionDocument{
		ID:                  session.ID,
		Status:              string(session.Status),
		Currency:            session.Currency,
		FulfillmentOptionID: session.FulfillmentOptionID,
		CreatedAt:           session.CreatedAt,
		UpdatedAt:           session.UpdatedAt,
		Version:             session.Version,
	}
	for _, item := range session.Items {
		doc.Items = append(doc.Items, itemDocument(item))
	}
	for _, li := range session.LineItems {
		doc.LineItems = append(doc.LineItems, lineItemDocumentFrom(li))
	}
	if session.Buyer != nil {
		buyer := buyerDocument(*session.Buyer)
		doc.Buyer = &buyer
	}
	if session.FulfillmentAddress != nil {
		address := addressDocument(*session.FulfillmentAddress)
		doc.FulfillmentAddress = &address
	}
	for _, opt := range session.FulfillmentOptions {
		doc.FulfillmentOptions = append(doc.FulfillmentOptions, optionDocument(opt))
	}
	for _, total := range session.Totals {
		doc.Totals = append(doc.Totals, totalDocument(total))
	}
	for _, message := range session.Messages {
		doc.Messages = append(doc.Messages, messageDocument(message))
	}
	for _, link := range session.Links {
		doc.Links = append(doc.Links, linkDocument(link))
	}
	if session.PaymentProvider != nil {
		doc.PaymentProvider = &providerDocument{
			Provider:                session.PaymentProvider.Provider,
			SupportedPaymentMethods: session.PaymentProvider.SupportedPaymentMethods,
		}
	}
	if session.Order != nil {
		ref := orderRefDocument(*session.Order)
		doc.Order = &ref
	}
	return doc
}

func (d sessionDocument) toDomain() domain.CheckoutSession {
	session := domain.CheckoutSession{
		ID:                  d.ID,
		Status:              domain.CheckoutStatus(d.Status),
		Currency:            d.Currency,
		FulfillmentOptionID: d.FulfillmentOptionID,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		Version:             d.Version,
	}
	for _, item := range d.Items {
		session.Items = append(session.Items, domain.Item(item))
	}
	for _, li := range d.LineItems {
		session.LineItems = append(session.LineItems, li.toDomain())
	}
	if d.Buyer != nil {
		buyer := domain.Buyer(*d.Buyer)
		session.Buyer = &buyer
	}
	if d.FulfillmentAddress != nil {
		address := domain.Address(*d.FulfillmentAddress)
		session.FulfillmentAddress = &address
	}
	for _, opt := range d.FulfillmentOptions {
		session.FulfillmentOptions = append(session.FulfillmentOptions, domain.FulfillmentOption(opt))
	}
	for _, total := range d.Totals {
		session.Totals = append(session.Totals, domain.Total(total))
	}
	for _, message := range d.Messages {
		session.Messages = append(session.Messages, domain.Message(message))
	}
	for _, link := range d.Links {
		session.Links = append(session.Links, domain.Link(link))
	}
	if d.PaymentProvider != nil {
		session.PaymentProvider = &domain.PaymentProvider{
			Provider:                d.PaymentProvider.Provider,
			SupportedPaymentMethods: d.PaymentProvider.SupportedPaymentMethods,
		}
	}
	if d.Order != nil {
		ref := domain.OrderRef(*d.Order)
		session.Order = &ref
	}
	return session
}

func lineItemDocumentFrom(li domain.LineItem) lineItemDocument {
	return lineItemDocument{
		ID:         li.ID,
		Item:       itemDocument(li.Item),
		BaseAmount: li.BaseAmount,
		Discount:   li.Discount,
		Subtotal:   li.Subtotal,
		Tax:        li.Tax,
		Total:      li.Total,
	}
}

func (d lineItemDocument) toDomain() domain.LineItem {
	return domain.LineItem{
		ID:         d.ID,
		Item:       domain.Item(d.Item),
		BaseAmount: d.BaseAmount,
		Discount:   d.Discount,
		Subtotal:   d.Subtotal,
		Tax:        d.Tax,
		Total:      d.Total,
	}
}

func orderDocumentFrom(order domain.Order) orderDocument {
	doc := orderDocument{
		ID:                order.ID,
		CheckoutSessionID: order.CheckoutSessionID,
		PermalinkURL:      order.PermalinkURL,
		Status:            order.Status,
		Currency:          order.Currency,
		CreatedAt:         order.CreatedAt,
	}
	for _, li := range order.LineItems {
		doc.LineItems = append(doc.LineItems, lineItemDocumentFrom(li))
	}
	for _, total := range order.Totals {
		doc.Totals = append(doc.Totals, totalDocument(total))
	}
	if order.Buyer != nil {
		buyer := buyerDocument(*order.Buyer)
		doc.Buyer = &buyer
	}
	if order.FulfillmentAddress != nil {
		address := addressDocument(*order.FulfillmentAddress)
		doc.FulfillmentAddress = &address
	}
	return doc
}

func (d orderDocument) toDomain() domain.Order {
	order := domain.Order{
		ID:                d.ID,
		CheckoutSessionID: d.CheckoutSessionID,
		PermalinkURL:      d.PermalinkURL,
		Status:            d.Status,
		Currency:          d.Currency,
		CreatedAt:         d.CreatedAt,
	}
	for _, li := range d.LineItems {
		order.LineItems = append(order.LineItems, li.toDomain())
	}
	for _, total := range d.Totals {
		order.Totals = append(order.Totals, domain.Total(total))
	}
	if d.Buyer != nil {
		buyer := domain.Buyer(*d.Buyer)
		order.Buyer = &buyer
	}
	if d.FulfillmentAddress != nil {
		address := domain.Address(*d.FulfillmentAddress)
		order.FulfillmentAddress = &address
	}
	return order
}

func auditDocumentFrom(event domain.AuditEvent) auditDocument {
	return auditDocument{
		ActionID:    event.ActionID,
		SessionID:   event.SessionID,
		Timestamp:   event.Timestamp,
		ActorType:   string(event.Actor.Type),
		ActorID:     event.Actor.ID,
		IntentType:  event.Intent.Type,
		Confidence:  event.Intent.Confidence,
		Utterance:   event.Intent.UserUtterance,
		ActionType:  event.Action.Type,
		ActionInput: event.Action.Input,
		Idempotency: event.Action.IdempotencyKey,
		SchemaValid: event.Verification.SchemaValid,
		Approved:    event.Verification.Approved,
		FailReasons: event.Verification.FailReasons,
		ExecStatus:  string(event.Execution.Status),
		ExecService: event.Execution.Service,
		ExecLatency: event.Execution.LatencyMS,
		ExecResult:  event.Execution.ResultRef,
		ExecError:   event.Execution.Error,
	}
}

func (d auditDocument) toDomain() domain.AuditEvent {
	return domain.AuditEvent{
		ActionID:  d.ActionID,
		SessionID: d.SessionID,
		Timestamp: d.Timestamp,
		Actor: domain.AuditActor{
			Type: domain.ActorType(d.ActorType),
			ID:   d.ActorID,
		},
		Intent: domain.AuditIntent{
			Type:          d.IntentType,
			Confidence:    d.Confidence,
			UserUtterance: d.Utterance,
		},
		Action: domain.AuditAction{
			Type:           d.ActionType,
			Input:          d.ActionInput,
			IdempotencyKey: d.Idempotency,
		},
		Verification: domain.AuditVerification{
			SchemaValid: d.SchemaValid,
			Approved:    d.Approved,
			FailReasons: d.FailReasons,
		},
		Execution: domain.AuditExecution{
			Status:    domain.ExecutionStatus(d.ExecStatus),
			Service:   d.ExecService,
			LatencyMS: d.ExecLatency,
			ResultRef: d.ExecResult,
			Error:     d.ExecError,
		},
	}
}
