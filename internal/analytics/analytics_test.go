package analytics

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEventJSONMatchesDataLayerShape(t *testing.T) {
	item := Item{ID: "A", Name: "Linen Shirt", Price: 10, Quantity: 2}

	raw, err := json.Marshal(AddToCart(item))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"add_to_cart","ecommerce":{"items":[{"item_id":"A","item_name":"Linen Shirt","price":10,"quantity":2}]}}`, string(raw))

	raw, err = json.Marshal(Purchase("TID1", []Item{item}, 20, "USD"))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"purchase","ecommerce":{"transaction_id":"TID1","value":20,"currency":"USD","items":[{"item_id":"A","item_name":"Linen Shirt","price":10,"quantity":2}]}}`, string(raw))

	raw, err = json.Marshal(ViewCart(nil, 0, "USD"))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"view_cart","ecommerce":{"value":0,"currency":"USD","items":[]}}`, string(raw))
}

func TestAggregateCopiesItems(t *testing.T) {
	items := []Item{{ID: "A", Quantity: 1}}
	ev := BeginCheckout(items, 10, "USD")
	items[0].Quantity = 99
	require.Equal(t, 1, ev.Ecommerce.Items[0].Quantity)
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	first := NewDataLayer()
	second := NewDataLayer()
	sink := Multi(first, nil, second)

	sink.Push(context.Background(), RemoveFromCart(Item{ID: "A", Quantity: 1}))

	require.Equal(t, 1, first.Len())
	require.Equal(t, 1, second.Len())
}

func TestDataLayerDrain(t *testing.T) {
	dl := NewDataLayer()
	raw, err := json.Marshal(dl)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))

	dl.Push(context.Background(), AddToCart(Item{ID: "A", Quantity: 1}))
	dl.Push(context.Background(), AddToCart(Item{ID: "B", Quantity: 1}))
	require.Len(t, dl.Events(), 2)

	drained := dl.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, "A", drained[0].Ecommerce.Items[0].ID)
	require.Zero(t, dl.Len())
}

func TestLogSinkWritesStructuredEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	sink.Push(context.Background(), Purchase("TID9", []Item{{ID: "A", Price: 5, Quantity: 3}}, 15, "USD"))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "analytics", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	require.Equal(t, "purchase", fields["event"])
	require.Equal(t, int64(3), fields["quantity"])
	require.Equal(t, 15.0, fields["value"])
	require.Equal(t, "TID9", fields["transactionId"])
}

func TestMetricsSinkCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewMetricsSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	sink.Push(ctx, AddToCart(Item{ID: "A", Quantity: 2}))
	sink.Push(ctx, AddToCart(Item{ID: "B", Quantity: 1}))
	sink.Push(ctx, Purchase("TID1", []Item{{ID: "A", Price: 10, Quantity: 2}}, 20, "USD"))

	require.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues(EventAddToCart)))
	require.Equal(t, 3.0, testutil.ToFloat64(sink.items.WithLabelValues(EventAddToCart)))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues(EventPurchase)))
	require.Equal(t, 1, testutil.CollectAndCount(sink.purchase))

	_, err = NewMetricsSink(reg)
	require.Error(t, err, "registering twice on the same registry should fail")
}
