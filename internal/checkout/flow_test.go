package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/storage"
)

func openCart(t *testing.T, backend storage.Store, sink analytics.Sink) *cart.Store {
	t.Helper()
	return cart.Open(context.Background(), backend, cart.WithSink(sink))
}

func fixedFlow() *Flow {
	return NewFlow(Deps{
		IDGenerator: func() string { return "01J0000000000000000000TEST" },
		Clock:       func() time.Time { return time.Date(2025, 5, 6, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)) },
	})
}

func TestSubmitPurchasesAndClears(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	events := analytics.NewDataLayer()
	store := openCart(t, backend, events)
	require.NoError(t, store.Add(ctx, cart.Product{ID: "A", Name: "Canvas Tote", Price: 10}, 2))
	events.Drain()

	receipt, err := fixedFlow().Submit(ctx, store)
	require.NoError(t, err)
	require.Equal(t, "TID01J0000000000000000000TEST", receipt.TransactionID)
	require.Equal(t, 20.0, receipt.Value)
	require.Equal(t, "USD", receipt.Currency)
	require.Equal(t, "/thankyou?tid=TID01J0000000000000000000TEST", receipt.RedirectURL)
	require.Equal(t, time.UTC, receipt.PlacedAt.Location())
	require.Len(t, receipt.Items, 1)

	pushed := events.Events()
	require.Len(t, pushed, 1)
	ev := pushed[0]
	require.Equal(t, analytics.EventPurchase, ev.Name)
	require.Equal(t, receipt.TransactionID, ev.Ecommerce.TransactionID)
	require.Equal(t, 20.0, ev.Ecommerce.ValueOrZero())
	require.Equal(t, "USD", ev.Ecommerce.Currency)
	require.Equal(t, []analytics.Item{{ID: "A", Name: "Canvas Tote", Price: 10, Quantity: 2}}, ev.Ecommerce.Items)

	require.Zero(t, store.Len())
	raw, err := backend.Get(ctx, cart.StorageKey)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestSubmitLogsPlacedOrder(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	flow := NewFlow(Deps{
		Logger:      zap.New(core),
		IDGenerator: func() string { return "01J0000000000000000000TEST" },
		Clock:       func() time.Time { return time.Date(2025, 5, 6, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)) },
	})
	store := openCart(t, storage.NewMemoryStore(), nil)
	require.NoError(t, store.Add(ctx, cart.Product{ID: "A", Price: 10}, 1))

	_, err := flow.Submit(ctx, store)
	require.NoError(t, err)

	entries := logs.FilterMessage("order placed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "checkout", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	require.Equal(t, "TID01J0000000000000000000TEST", fields["transactionId"])
	placedAt, ok := fields["placedAt"].(time.Time)
	require.True(t, ok)
	require.True(t, placedAt.Equal(time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)))
}

func TestSubmitEmptyCart(t *testing.T) {
	events := analytics.NewDataLayer()
	store := openCart(t, storage.NewMemoryStore(), events)

	_, err := fixedFlow().Submit(context.Background(), store)
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Zero(t, events.Len())
}

func TestBeginGuardsEmptyCart(t *testing.T) {
	ctx := context.Background()
	events := analytics.NewDataLayer()
	store := openCart(t, storage.NewMemoryStore(), events)
	flow := fixedFlow()

	dest, err := flow.Begin(ctx, store)
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Empty(t, dest, "no navigation")
	require.Zero(t, events.Len(), "no begin_checkout event")

	require.NoError(t, store.Add(ctx, cart.Product{ID: "B", Name: "Wool Scarf", Price: 5}, 3))
	events.Drain()

	dest, err = flow.Begin(ctx, store)
	require.NoError(t, err)
	require.Equal(t, PaymentPath, dest)
	pushed := events.Events()
	require.Len(t, pushed, 1)
	require.Equal(t, analytics.EventBeginCheckout, pushed[0].Name)
	require.Equal(t, 15.0, pushed[0].Ecommerce.ValueOrZero())
	require.Equal(t, 1, store.Len(), "begin leaves the cart untouched")
}

func TestViewCart(t *testing.T) {
	events := analytics.NewDataLayer()
	store := openCart(t, storage.NewMemoryStore(), events)
	flow := NewFlow(Deps{Currency: "eur"})

	flow.ViewCart(context.Background(), store)

	pushed := events.Events()
	require.Len(t, pushed, 1)
	require.Equal(t, analytics.EventViewCart, pushed[0].Name)
	require.Equal(t, "EUR", pushed[0].Ecommerce.Currency)
	require.NotNil(t, pushed[0].Ecommerce.Value)
	require.Empty(t, pushed[0].Ecommerce.Items)
}

type brokenPut struct{ storage.Store }

func (brokenPut) Put(context.Context, string, []byte) error { return errors.New("unavailable") }

func TestSubmitReportsClearFailure(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Put(ctx, cart.StorageKey, []byte(`[{"id":"A","name":"Tote","price":4,"quantity":1}]`)))
	events := analytics.NewDataLayer()
	store := openCart(t, brokenPut{mem}, events)

	receipt, err := fixedFlow().Submit(ctx, store)
	require.Error(t, err)
	require.NotEmpty(t, receipt.TransactionID, "the purchase was still recorded")
	require.Equal(t, 1, events.Len())
}

func TestDefaultIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	flow := NewFlow(Deps{})
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		store := openCart(t, storage.NewMemoryStore(), nil)
		require.NoError(t, store.Add(ctx, cart.Product{ID: "A", Price: 1}, 1))
		receipt, err := flow.Submit(ctx, store)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(receipt.TransactionID, "TID"))
		require.False(t, seen[receipt.TransactionID])
		seen[receipt.TransactionID] = true
	}
}
