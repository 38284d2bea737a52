package main

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/checkout"
	"finitefield.org/storefront/internal/config"
	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/storage"
)

// app holds the dependencies shared by every handler.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     storage.Store
	catalog   *catalog.Catalog
	checkout  *checkout.Flow
	sessions  *mw.Sessions
	sink      analytics.Sink
	templates *templateSet
	assets    fs.FS
	metrics   http.Handler
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Trace(a.cfg.Analytics.PubSub.ProjectID))
	r.Use(mw.HTMX)
	r.Use(a.sessions.Middleware)
	r.Use(mw.RequestLogger(a.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	timeout := a.cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(chimw.Timeout(timeout))

	// Static assets
	if a.assets != nil {
		fileServer := http.StripPrefix("/assets/", http.FileServer(http.FS(a.assets)))
		r.Handle("/assets/*", fileServer)
	}
	r.Get("/healthz", HealthHandler)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.CSRF)

		r.Get("/", a.ShopHandler)
		r.Get("/products/{id}", a.ProductHandler)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", a.CartPageHandler)
			r.Get("/drawer", a.DrawerHandler)
			r.Post("/items", a.AddItemHandler)
			r.Post("/items/{id}/step", a.StepItemHandler)
			r.Post("/items/{id}/quantity", a.SetQuantityHandler)
			r.Post("/items/{id}/remove", a.RemoveItemHandler)
			r.Post("/clear", a.ClearCartHandler)
			r.Post("/checkout", a.BeginCheckoutHandler)
		})

		r.Get("/payment", a.PaymentPageHandler)
		r.Post("/payment", a.SubmitPaymentHandler)
		r.Get("/thankyou", a.ThankYouHandler)

		r.NotFound(a.NotFoundHandler)
	})

	return r
}
