package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/checkout"
	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/storage"
	"finitefield.org/storefront/public"
	"finitefield.org/storefront/templates"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	store, closer, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open cart storage", zap.Error(err))
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	products, err := catalog.Load(cfg.App.CatalogFile)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.String("path", cfg.App.CatalogFile), zap.Error(err))
	}

	templateFS, assetFS, err := sources(cfg.App)
	if err != nil {
		logger.Fatal("failed to resolve web sources", zap.Error(err))
	}
	tmpl, err := newTemplateSet(templateFS, cfg.App.DevMode)
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sink, stopSinks, err := buildSinks(ctx, cfg.Analytics, logger, registry)
	if err != nil {
		logger.Fatal("failed to initialise analytics sinks", zap.Error(err))
	}
	defer stopSinks()

	sessions, err := middleware.NewSessions(middleware.SessionConfig{
		HashKey:  cfg.Session.HashKey,
		BlockKey: cfg.Session.BlockKey,
		Secure:   cfg.Session.Secure,
	})
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}
	if len(cfg.Session.HashKey) == 0 {
		logger.Warn("session hash key not configured; visitor cookies will not survive a restart")
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		catalog:  products,
		sessions: sessions,
		sink:     sink,
		checkout: checkout.NewFlow(checkout.Deps{
			Currency: cfg.App.Currency,
			Logger:   logger,
		}),
		templates: tmpl,
		assets:    assetFS,
		metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serverLogger.Info("storefront listening",
			zap.Bool("devMode", cfg.App.DevMode),
			zap.String("storage", cfg.Storage.Backend),
			zap.Strings("sinks", cfg.Analytics.Sinks),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server error", zap.Error(err))
	}
}

// sources picks the template and asset file systems: the embedded copies by
// default, the working tree in dev mode so edits show up without a rebuild.
func sources(cfg config.AppConfig) (fs.FS, fs.FS, error) {
	if cfg.DevMode {
		return os.DirFS(cfg.TemplatesDir), os.DirFS(filepath.Join(cfg.PublicDir, "assets")), nil
	}
	assets, err := public.AssetsFS()
	if err != nil {
		return nil, nil, err
	}
	return templates.FS(), assets, nil
}
