package middleware

import (
	"net/http"
	"time"

	chiMid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/observability"
)

// RequestLogger attaches a request-scoped logger to the context and emits one
// structured entry per request.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMid.NewWrapResponseWriter(w, r.ProtoMajor)

			fields := make([]zap.Field, 0, 4)
			if rid := chiMid.GetReqID(r.Context()); rid != "" {
				fields = append(fields, zap.String("requestId", rid))
			}
			if t, ok := TraceFromContext(r.Context()); ok {
				fields = append(fields, zap.String("traceId", t.TraceID))
				if res := t.Resource(); res != "" {
					fields = append(fields, zap.String("logging.googleapis.com/trace", res))
				}
			}
			if v := VisitorFromContext(r.Context()); v != nil {
				fields = append(fields, zap.String("visitorId", v.ID))
			}
			logger := base.With(fields...)
			ctx := observability.WithLogger(r.Context(), logger)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int64("durationMs", time.Since(start).Milliseconds()),
				zap.String("remoteIp", r.RemoteAddr),
				zap.Bool("htmx", IsHTMX(r.Context())),
			}
			switch {
			case status >= 500:
				logger.Error("request", entry...)
			case status >= 400:
				logger.Warn("request", entry...)
			default:
				logger.Info("request", entry...)
			}
		})
	}
}
