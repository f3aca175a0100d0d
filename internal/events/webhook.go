package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/acp-commerce/api/internal/domain"
)

// WebhookSignatureHeader carries the base64 HMAC-SHA256 of the request body.
const WebhookSignatureHeader = "X-Webhook-Signature"

const defaultWebhookTimeout = 5 * time.Second

// WebhookEmitter delivers order events to a configured endpoint. Deliveries
// run detached from the request context: a completed checkout never blocks or
// rolls back on webhook failure.
type WebhookEmitter struct {
	url     string
	secret  []byte
	client  *http.Client
	timeout time.Duration
	logger  func(ctx context.Context, event string, fields map[string]any)

	wg sync.WaitGroup
}

// WebhookEmitterConfig configures the WebhookEmitter.
type WebhookEmitterConfig struct {
	URL           string
	SigningSecret string
	Timeout       time.Duration
	Client        *http.Client
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

// NewWebhookEmitter constructs a WebhookEmitter for the given endpoint.
func NewWebhookEmitter(cfg WebhookEmitterConfig) (*WebhookEmitter, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("webhook emitter: url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &WebhookEmitter{
		url:     url,
		secret:  []byte(strings.TrimSpace(cfg.SigningSecret)),
		client:  client,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// OrderCreated delivers an order_created event asynchronously.
func (e *WebhookEmitter) OrderCreated(ctx context.Context, order domain.Order) {
	e.dispatch(newOrderEvent(TypeOrderCreated, order))
}

// OrderUpdated delivers an order_updated event asynchronously.
func (e *WebhookEmitter) OrderUpdated(ctx context.Context, order domain.Order) {
	e.dispatch(newOrderEvent(TypeOrderUpdated, order))
}

// Close waits for in-flight deliveries to finish.
func (e *WebhookEmitter) Close() {
	e.wg.Wait()
}

func (e *WebhookEmitter) dispatch(event OrderEvent) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := e.send(ctx, event); err != nil {
			e.logger(ctx, "events.webhook_failed", map[string]any{
				"eventType": event.Type,
				"orderId":   event.Data.ID,
				"error":     err.Error(),
			})
		}
	}()
}

func (e *WebhookEmitter) send(ctx context.Context, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(e.secret) > 0 {
		req.Header.Set(WebhookSignatureHeader, signBody(e.secret, body))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver event: endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func signBody(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
