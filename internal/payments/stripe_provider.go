package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Logger    StripeLogger
	Clock     func() time.Time
	Intents   stripePaymentIntentAPI
}

// StripeProvider charges delegated payment tokens through Stripe PaymentIntents.
type StripeProvider struct {
	intents stripePaymentIntentAPI
	account string
	clock   func() time.Time
	logger  StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		intents: intents,
		account: strings.TrimSpace(cfg.AccountID),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Authorize creates and immediately confirms a PaymentIntent against the
// delegated payment token. Card declines surface as ErrDeclined.
func (p *StripeProvider) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	if p == nil {
		return Authorization{}, errors.New("stripe: provider is nil")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return Authorization{}, errors.New("stripe: payment token is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(token),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	params.Metadata = map[string]string{
		"checkout_session_id": req.SessionID,
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	intent, err := p.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeCardDeclined {
			p.logger(ctx, "payments.stripe.intent.declined", map[string]any{
				"checkoutSessionId": req.SessionID,
				"declineCode":       stripeErr.DeclineCode,
			})
			return Authorization{}, fmt.Errorf("stripe: %s: %w", stripeErr.DeclineCode, ErrDeclined)
		}
		return Authorization{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		p.logger(ctx, "payments.stripe.intent.declined", map[string]any{
			"checkoutSessionId": req.SessionID,
			"paymentIntent":     intent.ID,
			"status":            intent.Status,
		})
		return Authorization{}, fmt.Errorf("stripe: intent %s status %s: %w", intent.ID, intent.Status, ErrDeclined)
	}

	p.logger(ctx, "payments.stripe.intent.authorized", map[string]any{
		"checkoutSessionId": req.SessionID,
		"paymentIntent":     intent.ID,
		"amount":            intent.Amount,
	})

	raw := map[string]any{}
	if data, err := json.Marshal(intent); err == nil {
		_ = json.Unmarshal(data, &raw)
	}

	currency := strings.ToLower(string(intent.Currency))
	if currency == "" {
		currency = strings.ToLower(req.Currency)
	}

	return Authorization{
		Provider:     "stripe",
		IntentID:     intent.ID,
		Status:       StatusAuthorized,
		Amount:       intent.Amount,
		Currency:     currency,
		AuthorizedAt: p.clock(),
		Raw:          raw,
	}, nil
}
