// Package analytics models the ecommerce events pushed while visitors shop and
// the sinks that receive them.
package analytics

// Event names in the GA4 ecommerce vocabulary.
const (
	EventAddToCart      = "add_to_cart"
	EventRemoveFromCart = "remove_from_cart"
	EventViewCart       = "view_cart"
	EventBeginCheckout  = "begin_checkout"
	EventPurchase       = "purchase"
)

// Event is one dataLayer push. It marshals to the same JSON the storefront
// scripts hand to Google Tag Manager.
type Event struct {
	Name      string    `json:"event"`
	Ecommerce Ecommerce `json:"ecommerce"`
}

// Ecommerce carries the GA4 ecommerce payload of an event.
type Ecommerce struct {
	TransactionID string   `json:"transaction_id,omitempty"`
	Value         *float64 `json:"value,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Items         []Item   `json:"items"`
}

// Item is a line entry of an ecommerce payload.
type Item struct {
	ID       string  `json:"item_id"`
	Name     string  `json:"item_name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ValueOrZero returns the aggregate value, zero when the event carries none.
func (e Ecommerce) ValueOrZero() float64 {
	if e.Value == nil {
		return 0
	}
	return *e.Value
}

// Quantity sums the quantities of every item in the event.
func (e Event) Quantity() int {
	total := 0
	for _, it := range e.Ecommerce.Items {
		total += it.Quantity
	}
	return total
}

// AddToCart records units of item entering the cart.
func AddToCart(item Item) Event {
	return Event{Name: EventAddToCart, Ecommerce: Ecommerce{Items: []Item{item}}}
}

// RemoveFromCart records a line leaving the cart with its last quantity.
func RemoveFromCart(item Item) Event {
	return Event{Name: EventRemoveFromCart, Ecommerce: Ecommerce{Items: []Item{item}}}
}

// ViewCart records the cart contents shown on the cart page.
func ViewCart(items []Item, value float64, currency string) Event {
	return Event{Name: EventViewCart, Ecommerce: aggregate(items, value, currency)}
}

// BeginCheckout records the cart handed over to checkout.
func BeginCheckout(items []Item, value float64, currency string) Event {
	return Event{Name: EventBeginCheckout, Ecommerce: aggregate(items, value, currency)}
}

// Purchase builds the event recorded once an order is submitted.
func Purchase(transactionID string, items []Item, value float64, currency string) Event {
	ec := aggregate(items, value, currency)
	ec.TransactionID = transactionID
	return Event{Name: EventPurchase, Ecommerce: ec}
}

func aggregate(items []Item, value float64, currency string) Ecommerce {
	v := value
	out := make([]Item, len(items))
	copy(out, items)
	return Ecommerce{Value: &v, Currency: currency, Items: out}
}
