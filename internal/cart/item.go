// Package cart holds a visitor's cart: the ordered item list, its persistence
// and the re-rendering of every surface that displays it.
package cart

import (
	"regexp"

	"finitefield.org/storefront/internal/analytics"
)

const (
	// StorageKey is the key under which the cart array is persisted.
	StorageKey = "cart"
	// MaxQuantity bounds the units of a single line.
	MaxQuantity = 999
)

// ids travel in URL paths, so they are restricted to unreserved characters.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._~-]{0,63}$`)

// ValidID reports whether id can identify a cart line.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// clampQuantity limits q to [lo, MaxQuantity].
func clampQuantity(q, lo int) int {
	switch {
	case q < lo:
		return lo
	case q > MaxQuantity:
		return MaxQuantity
	default:
		return q
	}
}

// Product describes what is being added, as read from an add-to-cart control.
type Product struct {
	ID    string
	Name  string
	Price float64
	Image string
}

// Item is one cart line. The JSON form is the stored cart format.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price × quantity.
func (i Item) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// AnalyticsItem converts the line into its ecommerce payload entry.
func (i Item) AnalyticsItem() analytics.Item {
	return analytics.Item{ID: i.ID, Name: i.Name, Price: i.Price, Quantity: i.Quantity}
}

// Snapshot is an immutable view of the cart handed to renderers.
type Snapshot struct {
	Items []Item
	Total float64
}

// Empty reports whether the snapshot has no items.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Count sums item quantities.
func (s Snapshot) Count() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// AnalyticsItems converts every line into ecommerce payload entries.
func (s Snapshot) AnalyticsItems() []analytics.Item {
	out := make([]analytics.Item, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it.AnalyticsItem())
	}
	return out
}

// Renderer rebuilds one presentation of the cart from a snapshot.
type Renderer interface {
	Render(Snapshot)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Snapshot)

// Render implements Renderer.
func (f RendererFunc) Render(s Snapshot) { f(s) }
