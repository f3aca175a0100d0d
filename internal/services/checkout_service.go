package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/payments"
	"github.com/acp-commerce/api/internal/repositories"
)

const (
	// updateRetryAttempts bounds internal retries on version conflicts before
	// surfacing ErrCheckoutConflict to the caller.
	updateRetryAttempts = 3

	defaultPaymentProviderName = "stripe"

	actionCreate   = "checkout_session.create"
	actionUpdate   = "checkout_session.update"
	actionComplete = "checkout_session.complete"
	actionCancel   = "checkout_session.cancel"
)

// checkoutAuthorizer abstracts payments.Manager for easier testing.
type checkoutAuthorizer interface {
	Authorize(ctx context.Context, paymentCtx payments.PaymentContext, req payments.AuthorizeRequest) (payments.Authorization, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Sessions repositories.CheckoutRepository
	Catalog  repositories.CatalogRepository
	Payments checkoutAuthorizer
	Events   OrderEventEmitter
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)

	Currency       string
	TaxRate        float64
	BaseURL        string
	TermsOfUseURL  string
	PaymentMethods []string

	// ID generators, overridable in tests.
	SessionID func() string
	OrderID   func() string
	ActionID  func() string
}

type checkoutService struct {
	sessions repositories.CheckoutRepository
	catalog  repositories.CatalogRepository
	payments checkoutAuthorizer
	events   OrderEventEmitter
	now      func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)

	currency       string
	taxRate        float64
	baseURL        string
	termsOfUseURL  string
	paymentMethods []string

	newSessionID func() string
	newOrderID   func() string
	newActionID  func() string
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("checkout service: session repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("checkout service: catalog repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "usd"
	}
	taxRate := deps.TaxRate
	if taxRate <= 0 {
		taxRate = domain.DefaultTaxRate
	}
	paymentMethods := deps.PaymentMethods
	if len(paymentMethods) == 0 {
		paymentMethods = []string{"card"}
	}

	sessionID := deps.SessionID
	if sessionID == nil {
		sessionID = func() string { return "cs_" + strings.ToLower(ulid.Make().String()) }
	}
	orderID := deps.OrderID
	if orderID == nil {
		orderID = func() string { return "ord_" + strings.ToLower(ulid.Make().String()) }
	}
	actionID := deps.ActionID
	if actionID == nil {
		actionID = randomActionID
	}

	return &checkoutService{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		payments: deps.Payments,
		events:   deps.Events,
		now: func() time.Time {
			return clock().UTC()
		},
		logger:         logger,
		currency:       currency,
		taxRate:        taxRate,
		baseURL:        strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/"),
		termsOfUseURL:  strings.TrimSpace(deps.TermsOfUseURL),
		paymentMethods: paymentMethods,
		newSessionID:   sessionID,
		newOrderID:     orderID,
		newActionID:    actionID,
	}, nil
}

// Create opens a session from the requested items. The session always starts
// not_ready_for_payment even when the payload carries an address.
func (s *checkoutService) Create(ctx context.Context, cmd CreateCheckoutCommand) (domain.CheckoutSession, error) {
	started := s.now()
	sessionID := s.newSessionID()

	if err := validateItems(cmd.Items); err != nil {
		return domain.CheckoutSession{}, s.recordCreateRejection(ctx, sessionID, cmd, started, err, "invalid_items")
	}
	products, err := s.resolveProducts(ctx, cmd.Items)
	if err != nil {
		if errors.Is(err, ErrCheckoutOutOfStock) {
			return domain.CheckoutSession{}, s.recordCreateRejection(ctx, sessionID, cmd, started, err, "out_of_stock")
		}
		return domain.CheckoutSession{}, err
	}

	now := s.now()
	session := domain.CheckoutSession{
		ID:        sessionID,
		Status:    domain.StatusNotReadyForPayment,
		Currency:  s.currency,
		Items:     cloneItems(cmd.Items),
		Buyer:     cloneBuyer(cmd.Buyer),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cmd.FulfillmentAddress != nil && !cmd.FulfillmentAddress.Empty() {
		address := *cmd.FulfillmentAddress
		session.FulfillmentAddress = &address
	}
	s.refreshSession(&session, products)
	session.Status = domain.StatusNotReadyForPayment
	session.PaymentProvider = nil

	event := s.newEvent(session.ID, cmd.Action, actionCreate, map[string]any{
		"items":       auditItems(cmd.Items),
		"has_buyer":   cmd.Buyer != nil,
		"has_address": session.FulfillmentAddress != nil,
	}, started)
	event.Execution = succeededExecution(session.ID, s.now().Sub(started))

	committed, err := s.sessions.CommitMutation(ctx, repositories.Mutation{
		Session: session,
		Event:   event,
	})
	if err != nil {
		return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.create_failed", err)
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"checkoutSessionId": committed.ID,
		"itemCount":         len(committed.Items),
	})
	return committed, nil
}

// Get fetches a session without side effects.
func (s *checkoutService) Get(ctx context.Context, sessionID string) (domain.CheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.CheckoutSession{}, invalidParam("$.checkout_session_id", "session id is required")
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.get_failed", err)
	}
	return session, nil
}

// Update merges the command into the stored session and recomputes pricing,
// options, and status. Version conflicts retry internally before surfacing
// ErrCheckoutConflict.
func (s *checkoutService) Update(ctx context.Context, cmd UpdateCheckoutCommand) (domain.CheckoutSession, error) {
	started := s.now()

	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return domain.CheckoutSession{}, invalidParam("$.checkout_session_id", "session id is required")
	}
	if cmd.Items != nil {
		if err := validateItems(cmd.Items); err != nil {
			return domain.CheckoutSession{}, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < updateRetryAttempts; attempt++ {
		session, err := s.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.update_failed", err)
		}
		if session.Status.Terminal() {
			return domain.CheckoutSession{}, ErrCheckoutTerminal
		}

		expectedVersion := session.Version
		if cmd.Items != nil {
			session.Items = cloneItems(cmd.Items)
		}
		if cmd.Buyer != nil {
			session.Buyer = cloneBuyer(cmd.Buyer)
		}
		if cmd.FulfillmentAddress != nil {
			if cmd.FulfillmentAddress.Empty() {
				return domain.CheckoutSession{}, invalidParam("$.fulfillment_address", "address is missing required fields")
			}
			address := *cmd.FulfillmentAddress
			session.FulfillmentAddress = &address
		}
		if cmd.FulfillmentOptionID != nil {
			session.FulfillmentOptionID = strings.TrimSpace(*cmd.FulfillmentOptionID)
		}

		products, err := s.resolveProducts(ctx, session.Items)
		if err != nil {
			return domain.CheckoutSession{}, err
		}

		if err := s.validateSelection(&session, cmd.FulfillmentOptionID != nil); err != nil {
			return domain.CheckoutSession{}, err
		}
		s.refreshSession(&session, products)
		session.UpdatedAt = s.now()

		event := s.newEvent(session.ID, cmd.Action, actionUpdate, map[string]any{
			"items":                 auditItems(cmd.Items),
			"has_buyer":             cmd.Buyer != nil,
			"has_address":           cmd.FulfillmentAddress != nil,
			"fulfillment_option_id": session.FulfillmentOptionID,
		}, started)
		event.Execution = succeededExecution(session.ID, s.now().Sub(started))

		committed, err := s.sessions.CommitMutation(ctx, repositories.Mutation{
			Session:         session,
			ExpectedVersion: expectedVersion,
			Event:           event,
		})
		if err == nil {
			s.logger(ctx, "checkout.session_updated", map[string]any{
				"checkoutSessionId": committed.ID,
				"status":            string(committed.Status),
			})
			return committed, nil
		}
		lastErr = err
		if !isRepoConflict(err) {
			return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.update_failed", err)
		}
	}

	s.logger(ctx, "checkout.update_conflict", map[string]any{
		"checkoutSessionId": sessionID,
		"attempts":          updateRetryAttempts,
		"error":             lastErr.Error(),
	})
	return domain.CheckoutSession{}, ErrCheckoutConflict
}

// Complete charges the delegated token and finalises the session into an order.
func (s *checkoutService) Complete(ctx context.Context, cmd CompleteCheckoutCommand) (domain.CheckoutSession, error) {
	started := s.now()

	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return domain.CheckoutSession{}, invalidParam("$.checkout_session_id", "session id is required")
	}
	token := strings.TrimSpace(cmd.PaymentToken)
	if token == "" {
		return domain.CheckoutSession{}, invalidParam("$.payment_data.token", "payment token is required")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.complete_failed", err)
	}
	if session.Status.Terminal() {
		return domain.CheckoutSession{}, ErrCheckoutTerminal
	}
	if session.Status != domain.StatusReadyForPayment {
		return domain.CheckoutSession{}, ErrCheckoutNotReady
	}

	if cmd.Buyer != nil {
		session.Buyer = cloneBuyer(cmd.Buyer)
	}

	amount := totalAmount(session.Totals)
	authorization, err := s.payments.Authorize(ctx, payments.PaymentContext{
		PreferredProvider: cmd.PaymentProvider,
		Currency:          session.Currency,
	}, payments.AuthorizeRequest{
		SessionID:      session.ID,
		Token:          token,
		Amount:         amount,
		Currency:       session.Currency,
		IdempotencyKey: cmd.Action.IdempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrUnsupportedProvider):
			return domain.CheckoutSession{}, invalidParam("$.payment_data.provider", "unsupported payment provider")
		case errors.Is(err, payments.ErrDeclined):
			return domain.CheckoutSession{}, s.recordDecline(ctx, session, cmd, started, err)
		default:
			s.logger(ctx, "checkout.authorize_failed", map[string]any{
				"checkoutSessionId": session.ID,
				"error":             err.Error(),
			})
			return domain.CheckoutSession{}, ErrCheckoutUnavailable
		}
	}

	now := s.now()
	order := domain.Order{
		ID:                 s.newOrderID(),
		CheckoutSessionID:  session.ID,
		Status:             domain.OrderStatusCreated,
		Currency:           session.Currency,
		LineItems:          session.LineItems,
		Totals:             session.Totals,
		Buyer:              cloneBuyer(session.Buyer),
		FulfillmentAddress: session.FulfillmentAddress,
		CreatedAt:          now,
	}
	order.PermalinkURL = s.orderPermalink(order.ID)

	expectedVersion := session.Version
	session.Status = domain.StatusCompleted
	session.Order = &domain.OrderRef{
		ID:                order.ID,
		CheckoutSessionID: session.ID,
		PermalinkURL:      order.PermalinkURL,
	}
	session.UpdatedAt = now

	event := s.newEvent(session.ID, cmd.Action, actionComplete, map[string]any{
		"payment_provider": authorization.Provider,
		"amount":           amount,
	}, started)
	event.Execution = domain.AuditExecution{
		Status:    domain.ExecutionSucceeded,
		Service:   "payments:" + authorization.Provider,
		LatencyMS: s.now().Sub(started).Milliseconds(),
		ResultRef: order.ID,
	}

	committed, err := s.sessions.CommitMutation(ctx, repositories.Mutation{
		Session:         session,
		ExpectedVersion: expectedVersion,
		Order:           &order,
		Event:           event,
	})
	if err != nil {
		if isRepoConflict(err) {
			return domain.CheckoutSession{}, ErrCheckoutConflict
		}
		return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.complete_failed", err)
	}

	s.logger(ctx, "checkout.session_completed", map[string]any{
		"checkoutSessionId": committed.ID,
		"orderId":           order.ID,
		"amount":            amount,
		"paymentIntent":     authorization.IntentID,
	})

	if s.events != nil {
		s.events.OrderCreated(ctx, order)
		s.events.OrderUpdated(ctx, order)
	}
	return committed, nil
}

// Cancel transitions a non-terminal session to canceled.
func (s *checkoutService) Cancel(ctx context.Context, cmd CancelCheckoutCommand) (domain.CheckoutSession, error) {
	started := s.now()

	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return domain.CheckoutSession{}, invalidParam("$.checkout_session_id", "session id is required")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.cancel_failed", err)
	}
	if session.Status.Terminal() {
		return domain.CheckoutSession{}, ErrCheckoutTerminal
	}

	expectedVersion := session.Version
	session.Status = domain.StatusCanceled
	session.UpdatedAt = s.now()

	event := s.newEvent(session.ID, cmd.Action, actionCancel, nil, started)
	event.Execution = succeededExecution(session.ID, s.now().Sub(started))

	committed, err := s.sessions.CommitMutation(ctx, repositories.Mutation{
		Session:         session,
		ExpectedVersion: expectedVersion,
		Event:           event,
	})
	if err != nil {
		if isRepoConflict(err) {
			return domain.CheckoutSession{}, ErrCheckoutConflict
		}
		return domain.CheckoutSession{}, s.translateRepoError(ctx, "checkout.cancel_failed", err)
	}

	s.logger(ctx, "checkout.session_canceled", map[string]any{
		"checkoutSessionId": committed.ID,
	})
	return committed, nil
}

// GetOrder fetches an order by id.
func (s *checkoutService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, invalidParam("$.order_id", "order id is required")
	}
	order, err := s.sessions.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.translateRepoError(ctx, "checkout.get_order_failed", err)
	}
	return order, nil
}

// ListAuditEvents returns the session's audit trail.
func (s *checkoutService) ListAuditEvents(ctx context.Context, sessionID string) ([]domain.AuditEvent, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, invalidParam("$.checkout_session_id", "session id is required")
	}
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, s.translateRepoError(ctx, "checkout.audit_failed", err)
	}
	events, err := s.sessions.ListAuditEvents(ctx, sessionID)
	if err != nil {
		return nil, s.translateRepoError(ctx, "checkout.audit_failed", err)
	}
	return events, nil
}

// recordCreateRejection persists a rejected-execution audit event for a create
// attempt that never produced a session, then reports the original failure.
// The event is appended outside a mutation because there is no session to commit.
func (s *checkoutService) recordCreateRejection(ctx context.Context, sessionID string, cmd CreateCheckoutCommand, started time.Time, cause error, reason string) error {
	event := s.newEvent(sessionID, cmd.Action, actionCreate, map[string]any{
		"items": auditItems(cmd.Items),
	}, started)
	event.Verification.SchemaValid = reason != "invalid_items"
	event.Verification.Approved = false
	event.Verification.FailReasons = []string{reason}
	event.Execution = domain.AuditExecution{
		Status:    domain.ExecutionRejected,
		Service:   "checkout",
		LatencyMS: s.now().Sub(started).Milliseconds(),
		Error:     cause.Error(),
	}

	if err := s.sessions.AppendEvent(ctx, event); err != nil {
		s.logger(ctx, "checkout.create_audit_failed", map[string]any{
			"checkoutSessionId": sessionID,
			"error":             err.Error(),
		})
	}
	return cause
}

// recordDecline persists a rejected-execution audit event without changing
// session state, then reports the decline. Losing the decline record is not
// acceptable, so an audit commit failure surfaces as unavailability rather
// than a decline.
func (s *checkoutService) recordDecline(ctx context.Context, session domain.CheckoutSession, cmd CompleteCheckoutCommand, started time.Time, cause error) error {
	event := s.newEvent(session.ID, cmd.Action, actionComplete, map[string]any{
		"payment_provider": strings.TrimSpace(cmd.PaymentProvider),
	}, started)
	event.Verification.Approved = false
	event.Verification.FailReasons = []string{"payment_declined"}
	event.Execution = domain.AuditExecution{
		Status:    domain.ExecutionRejected,
		Service:   "payments",
		LatencyMS: s.now().Sub(started).Milliseconds(),
		Error:     cause.Error(),
	}

	if _, err := s.sessions.CommitMutation(ctx, repositories.Mutation{
		Session:         session,
		ExpectedVersion: session.Version,
		Event:           event,
	}); err != nil {
		s.logger(ctx, "checkout.decline_audit_failed", map[string]any{
			"checkoutSessionId": session.ID,
			"error":             err.Error(),
		})
		return ErrCheckoutUnavailable
	}
	return ErrCheckoutPaymentDeclined
}

// refreshSession recomputes line items, fulfillment options, totals, status,
// links, and the payment provider block from the session's current content.
func (s *checkoutService) refreshSession(session *domain.CheckoutSession, products map[string]domain.Product) {
	session.LineItems = domain.PriceLineItems(session.Items, products, s.taxRate)

	if session.FulfillmentAddress == nil || session.FulfillmentAddress.Empty() {
		session.FulfillmentOptions = nil
		session.FulfillmentOptionID = ""
	} else {
		session.FulfillmentOptions = domain.StandardFulfillmentOptions(s.taxRate)
	}

	var selected *domain.FulfillmentOption
	if opt, ok := session.SelectedOption(); ok {
		selected = &opt
	} else {
		session.FulfillmentOptionID = ""
	}
	session.Totals = domain.ComputeTotals(session.LineItems, selected, s.taxRate)

	if session.FulfillmentAddress != nil && selected != nil {
		session.Status = domain.StatusReadyForPayment
		session.PaymentProvider = &domain.PaymentProvider{
			Provider:                defaultPaymentProviderName,
			SupportedPaymentMethods: append([]string(nil), s.paymentMethods...),
		}
	} else {
		session.Status = domain.StatusNotReadyForPayment
		session.PaymentProvider = nil
	}

	session.Links = s.sessionLinks()
}

// validateSelection rejects an explicitly supplied option id that does not
// match an available option. explicit distinguishes a caller mistake from a
// stale stored selection, which is silently cleared.
func (s *checkoutService) validateSelection(session *domain.CheckoutSession, explicit bool) error {
	if session.FulfillmentOptionID == "" || !explicit {
		return nil
	}
	if session.FulfillmentAddress == nil || session.FulfillmentAddress.Empty() {
		return invalidParam("$.fulfillment_option_id", "fulfillment option requires a fulfillment address")
	}
	for _, opt := range domain.StandardFulfillmentOptions(s.taxRate) {
		if opt.ID == session.FulfillmentOptionID {
			return nil
		}
	}
	return invalidParam("$.fulfillment_option_id", fmt.Sprintf("unknown fulfillment option %q", session.FulfillmentOptionID))
}

func (s *checkoutService) resolveProducts(ctx context.Context, items []domain.Item) (map[string]domain.Product, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, s.translateRepoError(ctx, "checkout.catalog_failed", err)
	}
	for _, item := range items {
		product, ok := products[item.ID]
		if !ok {
			return nil, fmt.Errorf("checkout: item %s is unknown: %w", item.ID, ErrCheckoutOutOfStock)
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("checkout: item %s has insufficient stock: %w", item.ID, ErrCheckoutOutOfStock)
		}
	}
	return products, nil
}

func (s *checkoutService) sessionLinks() []domain.Link {
	if s.termsOfUseURL == "" {
		return nil
	}
	return []domain.Link{{Type: "terms_of_use", URL: s.termsOfUseURL}}
}

func (s *checkoutService) orderPermalink(orderID string) string {
	if s.baseURL == "" {
		return "/orders/" + orderID
	}
	return s.baseURL + "/orders/" + orderID
}

// newEvent builds the audit skeleton shared by all operations. Input holds
// only sanitized fields; tokens and raw addresses never enter the trail.
func (s *checkoutService) newEvent(sessionID string, action ActionContext, actionType string, input map[string]any, started time.Time) domain.AuditEvent {
	actorType := action.ActorType
	if actorType == "" {
		actorType = domain.ActorAgent
	}
	event := domain.AuditEvent{
		ActionID:  s.newActionID(),
		SessionID: sessionID,
		Timestamp: started,
		Actor: domain.AuditActor{
			Type: actorType,
			ID:   strings.TrimSpace(action.ActorID),
		},
		Action: domain.AuditAction{
			Type:           actionType,
			Input:          input,
			IdempotencyKey: action.IdempotencyKey,
		},
		Verification: domain.AuditVerification{
			SchemaValid: true,
			Approved:    true,
		},
	}
	if action.Intent != nil {
		event.Intent = *action.Intent
	}
	return event
}

func (s *checkoutService) translateRepoError(ctx context.Context, logEvent string, err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCheckoutNotFound
		case repoErr.IsConflict():
			return ErrCheckoutConflict
		}
	}
	s.logger(ctx, logEvent, map[string]any{"error": err.Error()})
	return ErrCheckoutUnavailable
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func succeededExecution(sessionID string, latency time.Duration) domain.AuditExecution {
	return domain.AuditExecution{
		Status:    domain.ExecutionSucceeded,
		Service:   "checkout",
		LatencyMS: latency.Milliseconds(),
		ResultRef: sessionID,
	}
}

func validateItems(items []domain.Item) error {
	if len(items) == 0 {
		return invalidParam("$.items", "at least one item is required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return invalidParam(fmt.Sprintf("$.items[%d].id", i), "item id is required")
		}
		if item.Quantity < 1 {
			return invalidParam(fmt.Sprintf("$.items[%d].quantity", i), "quantity must be at least 1")
		}
	}
	return nil
}

func totalAmount(totals []domain.Total) int64 {
	for _, row := range totals {
		if row.Type == domain.TotalTypeTotal {
			return row.Amount
		}
	}
	return 0
}

func auditItems(items []domain.Item) []map[string]any {
	if items == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{"id": item.ID, "quantity": item.Quantity})
	}
	return out
}

func cloneItems(items []domain.Item) []domain.Item {
	if items == nil {
		return nil
	}
	return append([]domain.Item(nil), items...)
}

func cloneBuyer(buyer *domain.Buyer) *domain.Buyer {
	if buyer == nil {
		return nil
	}
	out := *buyer
	return &out
}

func randomActionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "act_" + strings.ToLower(ulid.Make().String())[:16]
	}
	return "act_" + hex.EncodeToString(buf)
}
