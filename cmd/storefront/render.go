package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/storefront/internal/analytics"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/view"
)

// templateSet caches parsed templates. In dev mode, templates are reparsed on each request.
type templateSet struct {
	source fs.FS
	dev    bool
	cached *template.Template
}

func newTemplateSet(source fs.FS, dev bool) (*templateSet, error) {
	t, err := view.Parse(source)
	if err != nil {
		return nil, err
	}
	return &templateSet{source: source, dev: dev, cached: t}, nil
}

func (ts *templateSet) get() (*template.Template, error) {
	if ts.dev {
		return view.Parse(ts.source)
	}
	if ts.cached == nil {
		return nil, fmt.Errorf("template not initialized")
	}
	return ts.cached, nil
}

// alertView feeds c_inline_alert.
type alertView struct {
	Tone  string
	Title string
	Body  string
}

// renderTemplate executes name into a buffer first so a failing template never
// leaves a half-written response.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, err := a.templates.get()
	if err != nil {
		http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *app) executeTemplate(name string, data any) (template.HTML, error) {
	t, err := a.templates.get()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// setTriggers publishes queued analytics events and the drawer toggle as htmx
// client events.
func setTriggers(w http.ResponseWriter, events []analytics.Event, openDrawer bool) {
	payload := map[string]any{}
	if len(events) > 0 {
		payload["analytics:push"] = events
	}
	if openDrawer {
		payload["cart:open"] = true
	}
	if len(payload) == 0 {
		return
	}
	if raw, err := json.Marshal(payload); err == nil {
		w.Header().Set("HX-Trigger", string(raw))
	}
}
