package main

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/config"
)

func TestBuildSinks(t *testing.T) {
	tests := []struct {
		name       string
		sinks      []string
		wantErr    string
		wantLogged int
		wantMetric bool
	}{
		{name: "none", sinks: []string{"none"}},
		{name: "empty", sinks: nil},
		{name: "log", sinks: []string{"log"}, wantLogged: 1},
		{name: "metrics", sinks: []string{" Metrics "}, wantMetric: true},
		{name: "log and metrics", sinks: []string{"log", "metrics"}, wantLogged: 1, wantMetric: true},
		{name: "unknown", sinks: []string{"log", "kafka"}, wantErr: `unknown analytics sink "kafka"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			reg := prometheus.NewRegistry()

			sink, stop, err := buildSinks(context.Background(), config.AnalyticsConfig{Sinks: tt.sinks}, zap.New(core), reg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(stop)

			sink.Push(context.Background(), analytics.AddToCart(analytics.Item{ID: "linen-shirt", Price: 49, Quantity: 1}))

			require.Len(t, logs.All(), tt.wantLogged)
			if tt.wantLogged > 0 {
				require.Equal(t, "analytics", logs.All()[0].LoggerName)
			}

			families, err := reg.Gather()
			require.NoError(t, err)
			var found bool
			for _, mf := range families {
				if mf.GetName() == "storefront_analytics_events_total" {
					found = true
				}
			}
			require.Equal(t, tt.wantMetric, found)
		})
	}
}
