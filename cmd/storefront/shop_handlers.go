package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/view"
)

// ShopHandler renders the product grid.
func (a *app) ShopHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer)
	if !ok {
		return
	}
	data := a.newPage(r, "shop", "Shop", cs)
	data.Products = a.catalog.List()
	a.renderTemplate(w, r, http.StatusOK, "page_shop", data)
}

// ProductHandler renders a product detail page with a quantity input.
func (a *app) ProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.catalog.Find(chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		a.NotFoundHandler(w, r)
		return
	}
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer)
	if !ok {
		return
	}
	data := a.newPage(r, "product", product.Name, cs)
	data.Product = &product
	a.renderTemplate(w, r, http.StatusOK, "page_product", data)
}

// NotFoundHandler renders the 404 page.
func (a *app) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer)
	if !ok {
		return
	}
	data := a.newPage(r, "error", "Page not found", cs)
	data.Message = "The page you are looking for does not exist."
	a.renderTemplate(w, r, http.StatusNotFound, "page_error", data)
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
