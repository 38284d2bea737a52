package analytics

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes one structured log entry per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging through logger. A nil logger disables output.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("analytics")}
}

// Push implements Sink.
func (s *LogSink) Push(_ context.Context, event Event) {
	fields := []zap.Field{
		zap.String("event", event.Name),
		zap.Int("items", len(event.Ecommerce.Items)),
		zap.Int("quantity", event.Quantity()),
	}
	if event.Ecommerce.Value != nil {
		fields = append(fields, zap.Float64("value", *event.Ecommerce.Value))
	}
	if event.Ecommerce.Currency != "" {
		fields = append(fields, zap.String("currency", event.Ecommerce.Currency))
	}
	if event.Ecommerce.TransactionID != "" {
		fields = append(fields, zap.String("transactionId", event.Ecommerce.TransactionID))
	}
	s.logger.Info("analytics event", fields...)
}
