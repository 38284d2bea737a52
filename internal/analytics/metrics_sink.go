package analytics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events in Prometheus.
type MetricsSink struct {
	events   *prometheus.CounterVec
	items    *prometheus.CounterVec
	purchase *prometheus.HistogramVec
}

// NewMetricsSink registers the analytics collectors on reg. A nil registerer
// uses the default Prometheus registry.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Analytics events pushed, by event name.",
		}, []string{"event"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "items_total",
			Help:      "Item quantities carried by analytics events, by event name.",
		}, []string{"event"}),
		purchase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "purchase_value",
			Help:      "Order totals of completed purchases.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"currency"}),
	}
	for _, c := range []prometheus.Collector{s.events, s.items, s.purchase} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Push implements Sink.
func (s *MetricsSink) Push(_ context.Context, event Event) {
	s.events.WithLabelValues(event.Name).Inc()
	if q := event.Quantity(); q > 0 {
		s.items.WithLabelValues(event.Name).Add(float64(q))
	}
	if event.Name == EventPurchase {
		s.purchase.WithLabelValues(event.Ecommerce.Currency).Observe(event.Ecommerce.ValueOrZero())
	}
}
