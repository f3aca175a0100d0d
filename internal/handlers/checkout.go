package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/platform/httpx"
	"github.com/acp-commerce/api/internal/services"
)

const maxCheckoutRequestBody = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body exceeds size limit")
)

// CheckoutHandlers exposes the checkout session endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers over the service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers the checkout session endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/checkout_sessions", h.create)
	r.Get("/checkout_sessions/{checkout_session_id}", h.get)
	r.Post("/checkout_sessions/{checkout_session_id}", h.update)
	r.Post("/checkout_sessions/{checkout_session_id}/complete", h.complete)
	r.Post("/checkout_sessions/{checkout_session_id}/cancel", h.cancel)
}

type itemPayload struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

type buyerPayload struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type addressPayload struct {
	Name       string `json:"name,omitempty"`
	LineOne    string `json:"line_one"`
	LineTwo    string `json:"line_two,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type createSessionRequest struct {
	Items              []itemPayload   `json:"items"`
	Buyer              *buyerPayload   `json:"buyer"`
	FulfillmentAddress *addressPayload `json:"fulfillment_address"`
}

type updateSessionRequest struct {
	Items               []itemPayload   `json:"items"`
	Buyer               *buyerPayload   `json:"buyer"`
	FulfillmentAddress  *addressPayload `json:"fulfillment_address"`
	FulfillmentOptionID *string         `json:"fulfillment_option_id"`
}

type paymentDataPayload struct {
	Token          string          `json:"token"`
	Provider       string          `json:"provider,omitempty"`
	BillingAddress *addressPayload `json:"billing_address,omitempty"`
}

type completeSessionRequest struct {
	Buyer       *buyerPayload      `json:"buyer"`
	PaymentData paymentDataPayload `json:"payment_data"`
}

type lineItemPayload struct {
	ID         string      `json:"id"`
	Item       itemPayload `json:"item"`
	BaseAmount int64       `json:"base_amount"`
	Discount   int64       `json:"discount"`
	Subtotal   int64       `json:"subtotal"`
	Tax        int64       `json:"tax"`
	Total      int64       `json:"total"`
}

type fulfillmentOptionPayload struct {
	Type                string `json:"type"`
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Subtitle            string `json:"subtitle,omitempty"`
	Carrier             string `json:"carrier,omitempty"`
	EarliestDeliveryETA string `json:"earliest_delivery_time,omitempty"`
	Subtotal            int64  `json:"subtotal"`
	Tax                 int64  `json:"tax"`
	Total               int64  `json:"total"`
}

type totalPayload struct {
	Type        string `json:"type"`
	DisplayText string `json:"display_text"`
	Amount      int64  `json:"amount"`
}

type messagePayload struct {
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content,omitempty"`
	Param       string `json:"param,omitempty"`
}

type linkPayload struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type paymentProviderPayload struct {
	Provider                string   `json:"provider"`
	SupportedPaymentMethods []string `json:"supported_payment_methods"`
}

type orderRefPayload struct {
	ID                string `json:"id"`
	CheckoutSessionID string `json:"checkout_session_id"`
	PermalinkURL      string `json:"permalink_url"`
}

type sessionResponse struct {
	ID                  string                     `json:"id"`
	Status              string                     `json:"status"`
	Currency            string                     `json:"currency"`
	Items               []itemPayload              `json:"items"`
	LineItems           []lineItemPayload          `json:"line_items"`
	Buyer               *buyerPayload              `json:"buyer,omitempty"`
	FulfillmentAddress  *addressPayload            `json:"fulfillment_address,omitempty"`
	FulfillmentOptions  []fulfillmentOptionPayload `json:"fulfillment_options"`
	FulfillmentOptionID string                     `json:"fulfillment_option_id,omitempty"`
	Totals              []totalPayload             `json:"totals"`
	Messages            []messagePayload           `json:"messages"`
	Links               []linkPayload              `json:"links"`
	PaymentProvider     *paymentProviderPayload    `json:"payment_provider,omitempty"`
	Order               *orderRefPayload           `json:"order,omitempty"`
	CreatedAt           string                     `json:"created_at,omitempty"`
	UpdatedAt           string                     `json:"updated_at,omitempty"`
}

func (h *CheckoutHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSessionRequest
	if !h.decodeBody(ctx, w, r, &req, true) {
		return
	}

	session, err := h.checkout.Create(ctx, services.CreateCheckoutCommand{
		Items:              toDomainItems(req.Items),
		Buyer:              toDomainBuyer(req.Buyer),
		FulfillmentAddress: toDomainAddress(req.FulfillmentAddress),
		Action:             actionContext(r),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *CheckoutHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.checkout.Get(ctx, chi.URLParam(r, "checkout_session_id"))
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *CheckoutHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateSessionRequest
	if !h.decodeBody(ctx, w, r, &req, true) {
		return
	}

	session, err := h.checkout.Update(ctx, services.UpdateCheckoutCommand{
		SessionID:           chi.URLParam(r, "checkout_session_id"),
		Items:               toDomainItems(req.Items),
		Buyer:               toDomainBuyer(req.Buyer),
		FulfillmentAddress:  toDomainAddress(req.FulfillmentAddress),
		FulfillmentOptionID: req.FulfillmentOptionID,
		Action:              actionContext(r),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *CheckoutHandlers) complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req completeSessionRequest
	if !h.decodeBody(ctx, w, r, &req, true) {
		return
	}

	session, err := h.checkout.Complete(ctx, services.CompleteCheckoutCommand{
		SessionID:       chi.URLParam(r, "checkout_session_id"),
		PaymentToken:    req.PaymentData.Token,
		PaymentProvider: req.PaymentData.Provider,
		Buyer:           toDomainBuyer(req.Buyer),
		Action:          actionContext(r),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *CheckoutHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.checkout.Cancel(ctx, services.CancelCheckoutCommand{
		SessionID: chi.URLParam(r, "checkout_session_id"),
		Action:    actionContext(r),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// decodeBody reads and unmarshals the request body. With required set, an
// empty body is rejected.
func (h *CheckoutHandlers) decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any, required bool) bool {
	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	switch {
	case errors.Is(err, errEmptyBody):
		if !required {
			return true
		}
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", "request body is required", http.StatusBadRequest))
		return false
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", "request body exceeds size limit", http.StatusRequestEntityTooLarge))
		return false
	case err != nil:
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", "failed to read request body", http.StatusBadRequest))
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func actionContext(r *http.Request) services.ActionContext {
	return services.ActionContext{
		ActorType:      domain.ActorAgent,
		ActorID:        strings.TrimSpace(r.Header.Get("X-Agent-Id")),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		httpErr := httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", verr.Message, http.StatusBadRequest)
		if verr.Param != "" {
			httpErr = httpErr.WithParam(verr.Param)
		}
		httpx.WriteError(ctx, w, httpErr)
		return
	}

	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", "invalid request", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutNotFound):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "session_not_found", "checkout session not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutTerminal):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "session_terminal", "checkout session is already completed or canceled", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutNotReady):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "session_not_ready", "checkout session is not ready for payment", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutOutOfStock):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeOutOfStock, "out_of_stock", "one or more items are unavailable", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutPaymentDeclined):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypePaymentDeclined, "payment_declined", "the payment was declined", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrCheckoutConflict):
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeInvalidRequest, "concurrent_modification", "the session was modified concurrently, retry the request", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w,
			httpx.NewError(httpx.TypeServiceUnavailable, "gateway_unavailable", "a dependency is unavailable", http.StatusBadGateway))
	}
}

func toDomainItems(items []itemPayload) []domain.Item {
	if items == nil {
		return nil
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Item{ID: strings.TrimSpace(item.ID), Quantity: item.Quantity})
	}
	return out
}

func toDomainBuyer(buyer *buyerPayload) *domain.Buyer {
	if buyer == nil {
		return nil
	}
	return &domain.Buyer{
		FirstName:   strings.TrimSpace(buyer.FirstName),
		LastName:    strings.TrimSpace(buyer.LastName),
		Email:       strings.TrimSpace(buyer.Email),
		PhoneNumber: strings.TrimSpace(buyer.PhoneNumber),
	}
}

func toDomainAddress(address *addressPayload) *domain.Address {
	if address == nil {
		return nil
	}
	return &domain.Address{
		Name:       strings.TrimSpace(address.Name),
		LineOne:    strings.TrimSpace(address.LineOne),
		LineTwo:    strings.TrimSpace(address.LineTwo),
		City:       strings.TrimSpace(address.City),
		State:      strings.TrimSpace(address.State),
		Country:    strings.TrimSpace(address.Country),
		PostalCode: strings.TrimSpace(address.PostalCode),
	}
}

func toSessionResponse(session domain.CheckoutSession) sessionResponse {
	resp := sessionResponse{
		ID:                  session.ID,
		Status:              string(session.Status),
		Currency:            session.Currency,
		Items:               make([]itemPayload, 0, len(session.Items)),
		LineItems:           make([]lineItemPayload, 0, len(session.LineItems)),
		FulfillmentOptions:  make([]fulfillmentOptionPayload, 0, len(session.FulfillmentOptions)),
		FulfillmentOptionID: session.FulfillmentOptionID,
		Totals:              make([]totalPayload, 0, len(session.Totals)),
		Messages:            make([]messagePayload, 0, len(session.Messages)),
		Links:               make([]linkPayload, 0, len(session.Links)),
		CreatedAt:           formatTime(session.CreatedAt),
		UpdatedAt:           formatTime(session.UpdatedAt),
	}

	for _, item := range session.Items {
		resp.Items = append(resp.Items, itemPayload(item))
	}
	for _, li := range session.LineItems {
		resp.LineItems = append(resp.LineItems, lineItemPayload{
			ID:         li.ID,
			Item:       itemPayload(li.Item),
			BaseAmount: li.BaseAmount,
			Discount:   li.Discount,
			Subtotal:   li.Subtotal,
			Tax:        li.Tax,
			Total:      li.Total,
		})
	}
	if session.Buyer != nil {
		buyer := buyerPayload(*session.Buyer)
		resp.Buyer = &buyer
	}
	if session.FulfillmentAddress != nil {
		address := addressPayload(*session.FulfillmentAddress)
		resp.FulfillmentAddress = &address
	}
	for _, opt := range session.FulfillmentOptions {
		resp.FulfillmentOptions = append(resp.FulfillmentOptions, fulfillmentOptionPayload{
			Type:                opt.Type,
			ID:                  opt.ID,
			Title:               opt.Title,
			Subtitle:            opt.Subtitle,
			Carrier:             opt.Carrier,
			EarliestDeliveryETA: opt.EarliestDeliveryETA,
			Subtotal:            opt.Subtotal,
			Tax:                 opt.Tax,
			Total:               opt.Total,
		})
	}
	for _, total := range session.Totals {
		resp.Totals = append(resp.Totals, totalPayload(total))
	}
	for _, message := range session.Messages {
		resp.Messages = append(resp.Messages, messagePayload(message))
	}
	for _, link := range session.Links {
		resp.Links = append(resp.Links, linkPayload(link))
	}
	if session.PaymentProvider != nil {
		resp.PaymentProvider = &paymentProviderPayload{
			Provider:                session.PaymentProvider.Provider,
			SupportedPaymentMethods: session.PaymentProvider.SupportedPaymentMethods,
		}
	}
	if session.Order != nil {
		ref := orderRefPayload(*session.Order)
		resp.Order = &ref
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
