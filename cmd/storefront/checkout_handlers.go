package main

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/storefront/internal/checkout"
	"finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/view"
)

var emptyCartAlert = alertView{
	Tone:  "warning",
	Title: "Your cart is empty",
	Body:  "Add a product before checking out.",
}

// CartPageHandler renders the full cart page and records a cart view.
func (a *app) CartPageHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer, view.SurfaceCart)
	if !ok {
		return
	}
	a.checkout.ViewCart(r.Context(), cs.store)
	a.renderTemplate(w, r, http.StatusOK, "page_cart", a.newPage(r, "cart", "Cart", cs))
}

// BeginCheckoutHandler moves a non-empty cart on to payment.
func (a *app) BeginCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	dest, err := a.checkout.Begin(r.Context(), cs.store)
	if errors.Is(err, checkout.ErrEmptyCart) {
		a.renderEmptyCart(w, r, "cart", "Cart", view.SurfaceCart)
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).Error("begin checkout", zap.Error(err))
		http.Error(w, "checkout unavailable", http.StatusInternalServerError)
		return
	}
	a.redirect(w, r, dest, cs)
}

// PaymentPageHandler renders the payment form next to the order summary.
func (a *app) PaymentPageHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer, view.SurfacePayment)
	if !ok {
		return
	}
	a.renderTemplate(w, r, http.StatusOK, "page_payment", a.newPage(r, "payment", "Checkout", cs))
}

// SubmitPaymentHandler places the order and sends the visitor to the confirmation.
func (a *app) SubmitPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	receipt, err := a.checkout.Submit(r.Context(), cs.store)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		a.renderEmptyCart(w, r, "payment", "Checkout", view.SurfacePayment)
		return
	case err != nil && receipt.TransactionID == "":
		observability.FromContext(r.Context()).Error("submit order", zap.Error(err))
		http.Error(w, "checkout unavailable", http.StatusInternalServerError)
		return
	case err != nil:
		// the order went through; only clearing the stored cart failed
		observability.FromContext(r.Context()).Warn("order placed with stale cart",
			zap.String("transactionId", receipt.TransactionID),
			zap.Error(err),
		)
	}
	a.redirect(w, r, receipt.RedirectURL, cs)
}

// ThankYouHandler confirms a placed order.
func (a *app) ThankYouHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer)
	if !ok {
		return
	}
	data := a.newPage(r, "thankyou", "Thank you", cs)
	data.TransactionID = strings.TrimSpace(r.URL.Query().Get("tid"))
	a.renderTemplate(w, r, http.StatusOK, "page_thankyou", data)
}

// renderEmptyCart reports an empty-cart checkout attempt without navigating.
func (a *app) renderEmptyCart(w http.ResponseWriter, r *http.Request, page, title string, surface view.Surface) {
	if middleware.IsHTMX(r.Context()) {
		a.renderTemplate(w, r, http.StatusUnprocessableEntity, "c_inline_alert", emptyCartAlert)
		return
	}
	cs, ok := a.openPageCart(w, r, view.SurfaceDrawer, surface)
	if !ok {
		return
	}
	data := a.newPage(r, page, title, cs)
	alert := emptyCartAlert
	data.Alert = &alert
	a.renderTemplate(w, r, http.StatusUnprocessableEntity, "page_"+page, data)
}

// redirect navigates the browser, handing queued analytics events to htmx first.
func (a *app) redirect(w http.ResponseWriter, r *http.Request, dest string, cs *cartSession) {
	if middleware.IsHTMX(r.Context()) {
		setTriggers(w, cs.events.Drain(), false)
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// openPageCart loads the cart for a full page render and draws its surfaces once.
func (a *app) openPageCart(w http.ResponseWriter, r *http.Request, surfaces ...view.Surface) (*cartSession, bool) {
	cs, err := a.openCart(r.WithContext(middleware.WithHTMX(r.Context(), false)), surfaces)
	if err != nil {
		observability.FromContext(r.Context()).Error("open cart", zap.Error(err))
		http.Error(w, "cart unavailable", http.StatusInternalServerError)
		return nil, false
	}
	cs.store.RenderAll()
	if err := cs.renderer.Err(); err != nil {
		observability.FromContext(r.Context()).Error("render cart", zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return nil, false
	}
	return cs, true
}
