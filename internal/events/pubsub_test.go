package events

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubEmitterPublishesOrderEvent(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	emitter, err := NewPubSubEmitter(topic, nil)
	if err != nil {
		t.Fatalf("NewPubSubEmitter: %v", err)
	}

	emitter.OrderCreated(ctx, testOrder())

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var event OrderEvent
	if err := json.Unmarshal(messages[0].Data, &event); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if event.Type != TypeOrderCreated || event.Data.ID != "ord_1" {
		t.Fatalf("unexpected event %#v", event)
	}
	if attr := messages[0].Attributes["checkoutSessionId"]; attr != "cs_1" {
		t.Fatalf("expected session attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["eventType"]; attr != TypeOrderCreated {
		t.Fatalf("expected event type attribute, got %q", attr)
	}
}
