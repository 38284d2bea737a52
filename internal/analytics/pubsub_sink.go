package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubSink publishes events to a Pub/Sub topic for downstream collectors.
type PubSubSink struct {
	topic   *pubsub.Topic
	logger  *zap.Logger
	marshal func(any) ([]byte, error)
	pending sync.WaitGroup
}

// NewPubSubSink constructs a Pub/Sub backed event sink.
func NewPubSubSink(topic *pubsub.Topic, logger *zap.Logger) (*PubSubSink, error) {
	if topic == nil {
		return nil, errors.New("pubsub analytics sink: topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubSink{
		topic:   topic,
		logger:  logger.Named("analytics.pubsub"),
		marshal: json.Marshal,
	}, nil
}

// Push implements Sink. The publish result is awaited in the background and a
// failure is only logged.
func (s *PubSubSink) Push(ctx context.Context, event Event) {
	data, err := s.marshal(event)
	if err != nil {
		s.logger.Warn("marshal analytics event", zap.String("event", event.Name), zap.Error(err))
		return
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", event.Name)
	setAttr(attrs, "transactionId", event.Ecommerce.TransactionID)
	setAttr(attrs, "currency", event.Ecommerce.Currency)

	// The request may finish before the broker acknowledges.
	pubCtx := context.WithoutCancel(ctx)
	result := s.topic.Publish(pubCtx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if _, err := result.Get(pubCtx); err != nil {
			s.logger.Warn("publish analytics event", zap.String("event", event.Name), zap.Error(err))
		}
	}()
}

// Flush blocks until every published event has been acknowledged or failed.
func (s *PubSubSink) Flush() {
	s.topic.Flush()
	s.pending.Wait()
}

// Stop flushes outstanding events and releases the topic's goroutines.
func (s *PubSubSink) Stop() {
	s.Flush()
	s.topic.Stop()
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
