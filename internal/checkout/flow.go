// Package checkout moves a visitor from the cart page through payment to the
// order confirmation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/cart"
)

const (
	// PaymentPath is where proceeding to checkout leads.
	PaymentPath = "/payment"
	// ConfirmationPath receives the visitor once the order is placed.
	ConfirmationPath = "/thankyou"
)

const (
	defaultCurrency   = "USD"
	transactionPrefix = "TID"
)

// ErrEmptyCart is returned when checkout is attempted without any items.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// Deps wires the flow's collaborators.
type Deps struct {
	Currency    string
	IDGenerator func() string
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Flow emits the checkout analytics events and finalises orders.
type Flow struct {
	currency string
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
}

// Receipt describes a placed order.
type Receipt struct {
	TransactionID string
	Value         float64
	Currency      string
	Items         []cart.Item
	RedirectURL   string
	PlacedAt      time.Time
}

// NewFlow constructs a checkout flow. Missing dependencies get defaults.
func NewFlow(deps Deps) *Flow {
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		currency: currency,
		newID:    idGen,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger.Named("checkout"),
	}
}

// Currency reports the currency orders are placed in.
func (f *Flow) Currency() string {
	return f.currency
}

// ViewCart records that the cart page was shown.
func (f *Flow) ViewCart(ctx context.Context, store *cart.Store) {
	snap := store.Snapshot()
	store.Track(ctx, analytics.ViewCart(snap.AnalyticsItems(), snap.Total, f.currency))
}

// Begin starts checkout and returns the payment destination. An empty cart
// aborts without emitting anything.
func (f *Flow) Begin(ctx context.Context, store *cart.Store) (string, error) {
	snap := store.Snapshot()
	if snap.Empty() {
		return "", ErrEmptyCart
	}
	store.Track(ctx, analytics.BeginCheckout(snap.AnalyticsItems(), snap.Total, f.currency))
	return PaymentPath, nil
}

// Submit places the order: it records the purchase, clears the cart and
// returns where to send the visitor next.
func (f *Flow) Submit(ctx context.Context, store *cart.Store) (Receipt, error) {
	snap := store.Snapshot()
	if snap.Empty() {
		return Receipt{}, ErrEmptyCart
	}

	tid := transactionPrefix + f.newID()
	store.Track(ctx, analytics.Purchase(tid, snap.AnalyticsItems(), snap.Total, f.currency))

	receipt := Receipt{
		TransactionID: tid,
		Value:         snap.Total,
		Currency:      f.currency,
		Items:         snap.Items,
		RedirectURL:   ConfirmationURL(tid),
		PlacedAt:      f.now(),
	}

	if err := store.Clear(ctx); err != nil {
		f.logger.Error("clear cart after purchase",
			zap.String("transactionId", tid),
			zap.Error(err),
		)
		return receipt, fmt.Errorf("clear cart: %w", err)
	}
	f.logger.Info("order placed",
		zap.String("transactionId", tid),
		zap.Float64("value", receipt.Value),
		zap.String("currency", receipt.Currency),
		zap.Int("lines", len(receipt.Items)),
		zap.Time("placedAt", receipt.PlacedAt),
	)
	return receipt, nil
}

// ConfirmationURL returns the confirmation destination for tid.
func ConfirmationURL(tid string) string {
	return ConfirmationPath + "?" + url.Values{"tid": {tid}}.Encode()
}
