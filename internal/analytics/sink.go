package analytics

import (
	"context"
	"encoding/json"
	"sync"
)

// Sink receives analytics events. Push is fire-and-forget: sinks never report
// delivery failures back to the caller.
type Sink interface {
	Push(ctx context.Context, event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event)

// Push implements Sink.
func (f SinkFunc) Push(ctx context.Context, event Event) {
	f(ctx, event)
}

type multiSink []Sink

// Multi fans every event out to each non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Push(ctx context.Context, event Event) {
	for _, s := range m {
		s.Push(ctx, event)
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// DataLayer is the per-request, append-only queue of events that is handed to
// the browser's window.dataLayer once the response is written.
type DataLayer struct {
	mu     sync.Mutex
	events []Event
}

// NewDataLayer returns an empty queue.
func NewDataLayer() *DataLayer {
	return &DataLayer{}
}

// Push implements Sink.
func (d *DataLayer) Push(_ context.Context, event Event) {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
}

// Events returns a copy of the queued events.
func (d *DataLayer) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Drain returns the queued events and empties the queue.
func (d *DataLayer) Drain() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.events
	d.events = nil
	return out
}

// Len reports the number of queued events.
func (d *DataLayer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

// MarshalJSON encodes the queue as a JSON array, never null.
func (d *DataLayer) MarshalJSON() ([]byte, error) {
	events := d.Events()
	if events == nil {
		events = []Event{}
	}
	return json.Marshal(events)
}
