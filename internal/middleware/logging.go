package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/freezer/internal/auth"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type clientSinkKey struct{}

// withClientSink lets RequireAPIKey, which runs inside RequestLogger, report
// the client label back out for the access log line.
func withClientSink(ctx context.Context, label *string) context.Context {
	return context.WithValue(ctx, clientSinkKey{}, label)
}

func reportClient(ctx context.Context) {
	if sink, ok := ctx.Value(clientSinkKey{}).(*string); ok {
		*sink = auth.Label(ctx)
	}
}

// RequestLogger returns middleware that logs each HTTP request with method,
// path, status code, duration, remote IP and the authenticated client.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			var client string
			next.ServeHTTP(rec, r.WithContext(withClientSink(r.Context(), &client)))

			duration := time.Since(start)
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
				slog.String("remote", RealIP(r)),
			}
			if client != "" {
				attrs = append(attrs, slog.String("client", client))
			}

			switch {
			case rec.status >= 500:
				logger.LogAttrs(r.Context(), slog.LevelError, "request", attrs...)
			case rec.status >= 400:
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request", attrs...)
			}
		})
	}
}
