package main

import (
	"errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/storage"
	"finitefield.org/storefront/internal/view"
)

var errNoVisitor = errors.New("visitor session missing")

// cartSession is the cart of the current visitor, bound to the surfaces the
// current page displays.
type cartSession struct {
	store    *cart.Store
	renderer *view.Renderer
	events   *analytics.DataLayer
	opened   bool
}

func (a *app) openCart(r *http.Request, surfaces []view.Surface) (*cartSession, error) {
	ctx := r.Context()
	visitor := middleware.VisitorFromContext(ctx)
	if visitor == nil {
		return nil, errNoVisitor
	}
	tmpl, err := a.templates.get()
	if err != nil {
		return nil, err
	}

	opts := []view.RendererOption{view.WithCSRFToken(visitor.CSRFToken)}
	if middleware.IsHTMX(ctx) {
		opts = append(opts, view.OutOfBand())
	}
	cs := &cartSession{
		renderer: view.NewRenderer(tmpl, a.cfg.App.Currency, surfaces, opts...),
		events:   analytics.NewDataLayer(),
	}
	cs.store = cart.Open(ctx, storage.Namespace(a.store, visitor.ID),
		cart.WithSink(analytics.Multi(cs.events, a.sink)),
		cart.WithRenderers(cs.renderer),
		cart.WithDrawerOpener(func() { cs.opened = true }),
		cart.WithLogger(observability.FromContext(ctx)),
	)
	return cs, nil
}

// openCartForMutation binds the cart to the surfaces listed by the page that
// issued the request.
func (a *app) openCartForMutation(w http.ResponseWriter, r *http.Request) (*cartSession, bool) {
	cs, err := a.openCart(r, view.ParseSurfaces(r.Header.Get(view.HeaderViews)))
	if err != nil {
		observability.FromContext(r.Context()).Error("open cart", zap.Error(err))
		http.Error(w, "cart unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return cs, true
}

// AddItemHandler adds the posted product to the cart.
func (a *app) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	product, err := productFromForm(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quantity := parseLeadingInt(r.PostForm.Get("quantity"))

	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	err = cs.store.Add(r.Context(), product, quantity)
	a.respondCart(w, r, cs, err)
}

// StepItemHandler applies a +1/-1 quantity change.
func (a *app) StepItemHandler(w http.ResponseWriter, r *http.Request) {
	delta, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("change")))
	if err != nil || delta < -cart.MaxQuantity || delta > cart.MaxQuantity {
		http.Error(w, "invalid change", http.StatusBadRequest)
		return
	}
	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	err = cs.store.UpdateQuantityByDelta(r.Context(), chi.URLParam(r, "id"), delta)
	a.respondCart(w, r, cs, err)
}

// SetQuantityHandler replaces the quantity of a line. Anything that is not a
// positive number removes the line.
func (a *app) SetQuantityHandler(w http.ResponseWriter, r *http.Request) {
	quantity := parseLeadingInt(r.PostFormValue("quantity"))
	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	err := cs.store.SetQuantity(r.Context(), chi.URLParam(r, "id"), quantity)
	a.respondCart(w, r, cs, err)
}

// RemoveItemHandler drops a line from the cart.
func (a *app) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	err := cs.store.Remove(r.Context(), chi.URLParam(r, "id"))
	a.respondCart(w, r, cs, err)
}

// ClearCartHandler empties the cart.
func (a *app) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	cs, ok := a.openCartForMutation(w, r)
	if !ok {
		return
	}
	err := cs.store.Clear(r.Context())
	a.respondCart(w, r, cs, err)
}

// DrawerHandler returns the drawer fragment.
func (a *app) DrawerHandler(w http.ResponseWriter, r *http.Request) {
	cs, err := a.openCart(r, []view.Surface{view.SurfaceDrawer})
	if err != nil {
		observability.FromContext(r.Context()).Error("open cart", zap.Error(err))
		http.Error(w, "cart unavailable", http.StatusInternalServerError)
		return
	}
	cs.store.RenderAll()
	if err := cs.renderer.Err(); err != nil {
		observability.FromContext(r.Context()).Error("render drawer", zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, string(cs.renderer.Fragment(view.SurfaceDrawer)))
}

// respondCart answers a cart mutation. htmx callers receive every re-rendered
// surface as out-of-band fragments; plain form posts are sent back where they
// came from.
func (a *app) respondCart(w http.ResponseWriter, r *http.Request, cs *cartSession, opErr error) {
	logger := observability.FromContext(r.Context())
	if opErr != nil {
		logger.Error("cart update not persisted", zap.Error(opErr))
	}

	if !middleware.IsHTMX(r.Context()) {
		http.Redirect(w, r, returnTarget(r, cs.opened), http.StatusSeeOther)
		return
	}

	if err := cs.renderer.Err(); err != nil {
		logger.Error("render cart", zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}

	body := string(cs.renderer.HTML())
	if opErr != nil {
		alert, err := a.executeTemplate("frag_alerts", alertView{
			Tone:  "danger",
			Title: "Cart not saved",
			Body:  "We could not save your cart. Your changes may be lost when you leave this page.",
		})
		if err == nil {
			body += string(alert)
		}
	}

	setTriggers(w, cs.events.Drain(), cs.opened)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, body)
}

func productFromForm(form url.Values) (cart.Product, error) {
	id := strings.TrimSpace(form.Get("id"))
	if id == "" {
		return cart.Product{}, errors.New("product id is required")
	}
	if !cart.ValidID(id) {
		return cart.Product{}, errors.New("invalid product id")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(form.Get("price")), 64)
	if err != nil || price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return cart.Product{}, errors.New("invalid price")
	}
	return cart.Product{
		ID:    id,
		Name:  strings.TrimSpace(form.Get("name")),
		Price: price,
		Image: strings.TrimSpace(form.Get("image")),
	}, nil
}

// parseLeadingInt reads the integer prefix of s the way form inputs are
// interpreted in the browser. Anything unparsable yields 0; values beyond the
// int range saturate.
func parseLeadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}

// returnTarget picks the same-origin page a plain form post should go back to:
// the "return" form field when present, otherwise the Referer.
func returnTarget(r *http.Request, openDrawer bool) string {
	target := "/"
	ref := r.PostFormValue("return")
	if !strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") {
		ref = r.Referer()
	}
	if ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == r.Host) && strings.HasPrefix(u.Path, "/") {
			target = u.Path
			q := u.Query()
			q.Del("cart")
			if openDrawer {
				q.Set("cart", "open")
			}
			if enc := q.Encode(); enc != "" {
				target += "?" + enc
			}
			return target
		}
	}
	if openDrawer {
		target += "?cart=open"
	}
	return target
}
