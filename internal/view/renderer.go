package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"finitefield.org/storefront/internal/cart"
)

// Fragment template names, one per surface.
const (
	TemplateDrawer  = "frag_cart_drawer"
	TemplateCart    = "frag_cart_page"
	TemplatePayment = "frag_payment_summary"
)

// Executor is satisfied by *template.Template.
type Executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Fragment is the rendered HTML of one surface.
type Fragment struct {
	Surface Surface
	HTML    template.HTML
}

// Renderer renders the active surfaces of a page each time the cart changes.
// Every render replaces the previous fragments.
type Renderer struct {
	tmpl      Executor
	currency  string
	surfaces  []Surface
	oob       bool
	csrf      string
	fragments map[Surface]template.HTML
	renders   int
	err       error
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// OutOfBand marks fragments for htmx out-of-band swapping.
func OutOfBand() RendererOption {
	return func(r *Renderer) { r.oob = true }
}

// WithCSRFToken embeds token in the fragment forms so they also work without htmx.
func WithCSRFToken(token string) RendererOption {
	return func(r *Renderer) { r.csrf = token }
}

// NewRenderer builds a renderer for surfaces. No surfaces means the drawer alone.
func NewRenderer(tmpl Executor, currency string, surfaces []Surface, opts ...RendererOption) *Renderer {
	if len(surfaces) == 0 {
		surfaces = []Surface{SurfaceDrawer}
	}
	r := &Renderer{
		tmpl:      tmpl,
		currency:  currency,
		surfaces:  append([]Surface(nil), surfaces...),
		fragments: make(map[Surface]template.HTML, len(surfaces)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements cart.Renderer.
func (r *Renderer) Render(snap cart.Snapshot) {
	r.renders++
	for _, s := range r.surfaces {
		name, data := r.model(s, snap)
		var buf bytes.Buffer
		if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			if r.err == nil {
				r.err = fmt.Errorf("render %s: %w", s, err)
			}
			delete(r.fragments, s)
			continue
		}
		r.fragments[s] = template.HTML(buf.String())
	}
}

func (r *Renderer) model(s Surface, snap cart.Snapshot) (string, any) {
	switch s {
	case SurfaceCart:
		v := BuildCartPage(snap, r.currency)
		v.OOB = r.oob
		v.CSRFToken = r.csrf
		return TemplateCart, v
	case SurfacePayment:
		v := BuildPayment(snap, r.currency)
		v.OOB = r.oob
		return TemplatePayment, v
	default:
		v := BuildDrawer(snap, r.currency)
		v.OOB = r.oob
		v.CSRFToken = r.csrf
		return TemplateDrawer, v
	}
}

// Fragment returns the latest HTML rendered for s.
func (r *Renderer) Fragment(s Surface) template.HTML {
	return r.fragments[s]
}

// Fragments returns the latest fragments in surface order.
func (r *Renderer) Fragments() []Fragment {
	out := make([]Fragment, 0, len(r.surfaces))
	for _, s := range r.surfaces {
		if html, ok := r.fragments[s]; ok {
			out = append(out, Fragment{Surface: s, HTML: html})
		}
	}
	return out
}

// HTML concatenates every fragment, ready to be written as one htmx response.
func (r *Renderer) HTML() template.HTML {
	var buf bytes.Buffer
	for _, f := range r.Fragments() {
		buf.WriteString(string(f.HTML))
	}
	return template.HTML(buf.String())
}

// Surfaces returns the surfaces this renderer draws.
func (r *Renderer) Surfaces() []Surface {
	return append([]Surface(nil), r.surfaces...)
}

// Renders counts calls to Render.
func (r *Renderer) Renders() int { return r.renders }

// Err returns the first template error encountered.
func (r *Renderer) Err() error { return r.err }
