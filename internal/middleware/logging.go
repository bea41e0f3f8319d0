package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	pkglogger "github.com/BradenHooton/backupsui/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureLogger returns a middleware for logging HTTP requests. Query strings
// that carry credentials (the magic-link token) are redacted.
func SecureLogger(logger *slog.Logger, ipResolver *pkghttp.ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if pkglogger.SanitizeQueryString(r.URL.RawQuery) {
				path += "?[REDACTED]"
			} else if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}

			level := slog.LevelInfo
			if wrapped.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(context.Background(), level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", wrapped.Status()),
				slog.Int64("bytes", int64(wrapped.BytesWritten())),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("client_ip", ipResolver.ClientIP(r)),
			)
		})
	}
}
