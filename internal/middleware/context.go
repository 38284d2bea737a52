package middleware

import (
	"context"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyIsHTMX  ctxKey = "is_htmx"
	ctxKeyVisitor ctxKey = "visitor"
	ctxKeyTrace   ctxKey = "trace"
)

// WithHTMX marks request as HTMX
func WithHTMX(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyIsHTMX, is)
}

// IsHTMX returns whether this is an htmx request
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIsHTMX).(bool)
	return v
}

// WithVisitor stores the visitor in context
func WithVisitor(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, ctxKeyVisitor, v)
}

// VisitorFromContext returns the visitor if present
func VisitorFromContext(ctx context.Context) *Visitor {
	if v, ok := ctx.Value(ctxKeyVisitor).(*Visitor); ok {
		return v
	}
	return nil
}

// WithTrace stores the request trace in context
func WithTrace(ctx context.Context, t TraceInfo) context.Context {
	return context.WithValue(ctx, ctxKeyTrace, t)
}

// TraceFromContext returns the request trace, if one was started
func TraceFromContext(ctx context.Context) (TraceInfo, bool) {
	t, ok := ctx.Value(ctxKeyTrace).(TraceInfo)
	return t, ok
}
