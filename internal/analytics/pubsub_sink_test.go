package analytics

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

func TestPubSubSinkPublishesEvent(t *testing.T) {
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

	topic, err := client.CreateTopic(ctx, "cart-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	sink, err := NewPubSubSink(topic, nil)
	if err != nil {
		t.Fatalf("NewPubSubSink: %v", err)
	}

	sink.Push(ctx, Purchase("TID01", []Item{{ID: "A", Name: "Tote", Price: 10, Quantity: 2}}, 20, "USD"))
	sink.Stop()

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload Event
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Name != EventPurchase || payload.Ecommerce.ValueOrZero() != 20 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["transactionId"]; attr != "TID01" {
		t.Fatalf("expected transaction id attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["event"]; attr != EventPurchase {
		t.Fatalf("expected event attribute, got %q", attr)
	}
}

func TestPubSubSinkOmitsEmptyAttributes(t *testing.T) {
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

	topic, err := client.CreateTopic(ctx, "cart-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	sink, err := NewPubSubSink(topic, nil)
	if err != nil {
		t.Fatalf("NewPubSubSink: %v", err)
	}

	sink.Push(ctx, AddToCart(Item{ID: "A", Quantity: 1}))
	sink.Stop()

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if _, ok := messages[0].Attributes["transactionId"]; ok {
		t.Fatalf("transactionId attribute should not be present")
	}
}

func TestNewPubSubSinkRequiresTopic(t *testing.T) {
	if _, err := NewPubSubSink(nil, nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
