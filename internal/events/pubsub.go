package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/acp-commerce/api/internal/domain"
)

// PubSubEmitter publishes order events to a Pub/Sub topic for downstream
// consumers (fulfillment, analytics). Publish failures are logged, never
// propagated to the checkout path.
type PubSubEmitter struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewPubSubEmitter constructs a Pub/Sub backed order event emitter.
func NewPubSubEmitter(topic *pubsub.Topic, logger func(ctx context.Context, event string, fields map[string]any)) (*PubSubEmitter, error) {
	if topic == nil {
		return nil, errors.New("pubsub emitter: topic is required")
	}
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PubSubEmitter{
		topic:   topic,
		marshal: json.Marshal,
		logger:  logger,
	}, nil
}

// OrderCreated publishes an order_created event.
func (e *PubSubEmitter) OrderCreated(ctx context.Context, order domain.Order) {
	e.publish(ctx, newOrderEvent(TypeOrderCreated, order))
}

// OrderUpdated publishes an order_updated event.
func (e *PubSubEmitter) OrderUpdated(ctx context.Context, order domain.Order) {
	e.publish(ctx, newOrderEvent(TypeOrderUpdated, order))
}

func (e *PubSubEmitter) publish(ctx context.Context, event OrderEvent) {
	if err := e.Publish(ctx, event); err != nil {
		e.logger(ctx, "events.pubsub_failed", map[string]any{
			"eventType": event.Type,
			"orderId":   event.Data.ID,
			"error":     err.Error(),
		})
	}
}

// Publish sends one event and waits for the server id. Exposed for callers
// that need delivery confirmation.
func (e *PubSubEmitter) Publish(ctx context.Context, event OrderEvent) error {
	if e == nil || e.topic == nil {
		return errors.New("pubsub emitter: not initialised")
	}

	data, err := e.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	result := e.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"eventType":         event.Type,
			"orderId":           event.Data.ID,
			"checkoutSessionId": event.Data.CheckoutSessionID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}
