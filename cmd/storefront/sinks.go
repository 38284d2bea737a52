package main

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/config"
)

// buildSinks wires the server-side analytics sinks named in configuration.
// The returned stop func flushes buffered events and releases clients.
func buildSinks(ctx context.Context, cfg config.AnalyticsConfig, logger *zap.Logger, reg prometheus.Registerer) (analytics.Sink, func(), error) {
	var (
		sinks []analytics.Sink
		stops []func()
	)
	stop := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	for _, name := range cfg.Sinks {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "", "none":
		case "log":
			sinks = append(sinks, analytics.NewLogSink(logger))
		case "metrics":
			m, err := analytics.NewMetricsSink(reg)
			if err != nil {
				stop()
				return nil, nil, fmt.Errorf("metrics sink: %w", err)
			}
			sinks = append(sinks, m)
		case "pubsub":
			client, topic, err := openTopic(ctx, cfg.PubSub)
			if err != nil {
				stop()
				return nil, nil, fmt.Errorf("pubsub sink: %w", err)
			}
			ps, err := analytics.NewPubSubSink(topic, logger)
			if err != nil {
				_ = client.Close()
				stop()
				return nil, nil, fmt.Errorf("pubsub sink: %w", err)
			}
			sinks = append(sinks, ps)
			stops = append(stops, func() {
				ps.Stop()
				if err := client.Close(); err != nil {
					logger.Warn("pubsub close error", zap.Error(err))
				}
			})
		default:
			stop()
			return nil, nil, fmt.Errorf("unknown analytics sink %q", name)
		}
	}
	return analytics.Multi(sinks...), stop, nil
}

func openTopic(ctx context.Context, cfg config.PubSubConfig) (*pubsub.Client, *pubsub.Topic, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	topicID := strings.TrimSpace(cfg.Topic)
	if projectID == "" || topicID == "" {
		return nil, nil, fmt.Errorf("project id and topic are required")
	}

	var opts []option.ClientOption
	emulator := strings.TrimSpace(cfg.EmulatorHost)
	if emulator != "" {
		opts = append(opts,
			option.WithEndpoint(emulator),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, err
	}
	topic := client.Topic(topicID)
	if emulator != "" {
		exists, err := topic.Exists(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		if !exists {
			if topic, err = client.CreateTopic(ctx, topicID); err != nil {
				_ = client.Close()
				return nil, nil, err
			}
		}
	}
	return client, topic, nil
}
