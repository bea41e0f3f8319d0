package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "auth"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	// Secure marks the cookie HTTPS-only. Only local plain-http development
	// should turn this off.
	Secure bool
}

// SetSessionCookie stores the session token in an HttpOnly, SameSite=Strict cookie
func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, config CookieConfig) {
	seconds := int(maxAge / time.Second)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(maxAge),
		MaxAge:   seconds,
		HttpOnly: true, // never readable from script
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie empties the session cookie and expires it immediately
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // emitted as Max-Age=0
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetSessionCookie retrieves the session token from cookies
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
