package main

import (
	"html/template"
	"net/http"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/view"
)

// pageData aggregates everything the layout and page templates read.
type pageData struct {
	Title      string
	Page       string
	CSRFToken  string
	Currency   string
	Views      []view.Surface
	Events     []analytics.Event
	Analytics  analyticsView
	CartCount  int
	OpenDrawer bool
	Drawer     template.HTML
	Alert      *alertView

	Products      []catalog.Product
	Product       *catalog.Product
	CartPage      template.HTML
	Payment       template.HTML
	TransactionID string
	Message       string
}

// analyticsView carries the client-side measurement ids.
type analyticsView struct {
	GA4MeasurementID string
	GTMContainerID   string
	Debug            bool
}

// newPage renders the cart surfaces of a full page and collects the events
// queued while building it.
func (a *app) newPage(r *http.Request, page, title string, cs *cartSession) *pageData {
	data := &pageData{
		Title:    title,
		Page:     page,
		Currency: a.cfg.App.Currency,
		Analytics: analyticsView{
			GA4MeasurementID: a.cfg.Analytics.GA4MeasurementID,
			GTMContainerID:   a.cfg.Analytics.GTMContainerID,
			Debug:            a.cfg.Analytics.Debug,
		},
		OpenDrawer: r.URL.Query().Get("cart") == "open",
	}
	if v := middleware.VisitorFromContext(r.Context()); v != nil {
		data.CSRFToken = v.CSRFToken
	}
	if cs == nil {
		data.Views = []view.Surface{view.SurfaceDrawer}
		return data
	}
	data.Views = cs.renderer.Surfaces()
	data.CartCount = cs.store.Snapshot().Count()
	data.Drawer = cs.renderer.Fragment(view.SurfaceDrawer)
	data.CartPage = cs.renderer.Fragment(view.SurfaceCart)
	data.Payment = cs.renderer.Fragment(view.SurfacePayment)
	data.Events = cs.events.Drain()
	return data
}
