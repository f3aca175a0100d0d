package events

import (
	"context"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/services"
)

// Event names carried in the payload type field and message attributes.
const (
	TypeOrderCreated = "order_created"
	TypeOrderUpdated = "order_updated"
)

// OrderEvent is the wire payload shared by the webhook and Pub/Sub emitters.
type OrderEvent struct {
	Type string    `json:"type"`
	Data OrderData `json:"data"`
}

// OrderData is the order snapshot embedded in an event.
type OrderData struct {
	Type              string `json:"type"`
	ID                string `json:"id"`
	CheckoutSessionID string `json:"checkout_session_id"`
	PermalinkURL      string `json:"permalink_url"`
	Status            string `json:"status"`
}

func newOrderEvent(eventType string, order domain.Order) OrderEvent {
	return OrderEvent{
		Type: eventType,
		Data: OrderData{
			Type:              "order",
			ID:                order.ID,
			CheckoutSessionID: order.CheckoutSessionID,
			PermalinkURL:      order.PermalinkURL,
			Status:            order.Status,
		},
	}
}

// Multi fans order events out to several emitters.
type Multi []services.OrderEventEmitter

// OrderCreated forwards to every emitter.
func (m Multi) OrderCreated(ctx context.Context, order domain.Order) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.OrderCreated(ctx, order)
		}
	}
}

// OrderUpdated forwards to every emitter.
func (m Multi) OrderUpdated(ctx context.Context, order domain.Order) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.OrderUpdated(ctx, order)
		}
	}
}
