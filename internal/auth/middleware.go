package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/backupsui/internal/models"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UsernameContextKey is the key for storing the session username in context
	UsernameContextKey contextKey = "username"
)

// SessionVerifier is the part of SessionManager the gate depends on
type SessionVerifier interface {
	Verify(token string) (*models.SessionClaims, error)
}

// PathClass is the gate's classification of a request path
type PathClass int

const (
	// PathExempt is never gated: login API, static assets, public files
	PathExempt PathClass = iota
	// PathLogin is the login page
	PathLogin
	// PathAPI is any API route other than the login API
	PathAPI
	// PathPage is any other (page) route
	PathPage
)

// GateConfig describes the paths the gate treats specially
type GateConfig struct {
	LoginPath      string
	HomePath       string
	APIPrefix      string
	LoginAPIPath   string
	ExemptPrefixes []string
	ExemptPaths    []string
}

// DefaultGateConfig returns the panel's path layout
func DefaultGateConfig() GateConfig {
	return GateConfig{
		LoginPath:      "/login",
		HomePath:       "/",
		APIPrefix:      "/api/",
		LoginAPIPath:   "/api/login",
		ExemptPrefixes: []string{"/static/", "/public/"},
		ExemptPaths:    []string{"/favicon.ico", "/healthz"},
	}
}

// Classify maps a request path to its PathClass
func (c GateConfig) Classify(path string) PathClass {
	if path == c.LoginAPIPath || strings.HasPrefix(path, c.LoginAPIPath+"/") {
		return PathExempt
	}
	for _, p := range c.ExemptPaths {
		if path == p {
			return PathExempt
		}
	}
	for _, prefix := range c.ExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return PathExempt
		}
	}
	if path == c.LoginPath {
		return PathLogin
	}
	if strings.HasPrefix(path, c.APIPrefix) {
		return PathAPI
	}
	return PathPage
}

// RouteGate enforces a valid session on every route except the login entry
// points. It only consults the session verifier; login throttling lives in
// the login handler.
func RouteGate(sessions SessionVerifier, config GateConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := config.Classify(r.URL.Path)
			if class == PathExempt {
				next.ServeHTTP(w, r)
				return
			}

			claims := sessionFromRequest(sessions, r)

			switch class {
			case PathLogin:
				if claims != nil {
					http.Redirect(w, r, config.HomePath, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return

			case PathAPI:
				if claims == nil {
					pkghttp.WriteUnauthorized(w, "Not authorized")
					return
				}

			default:
				if claims == nil {
					http.Redirect(w, r, config.LoginPath, http.StatusFound)
					return
				}
			}

			ctx := context.WithValue(r.Context(), UsernameContextKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromRequest returns the verified claims or nil; a missing cookie
// and an invalid token are indistinguishable to the caller.
func sessionFromRequest(sessions SessionVerifier, r *http.Request) *models.SessionClaims {
	token, err := GetSessionCookie(r)
	if err != nil || token == "" {
		return nil
	}
	claims, err := sessions.Verify(token)
	if err != nil {
		return nil
	}
	return claims
}

// UsernameFromContext returns the authenticated username, if any
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(UsernameContextKey).(string)
	return username
}
