package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPResolver        *pkghttp.ClientIPResolver
}

// DefaultLoginRateLimit returns the default flood limit for the login API
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// It is a coarse per-address flood guard; failed-login backoff is separate.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return config.IPResolver.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded", 60)
		}),
	)
}
