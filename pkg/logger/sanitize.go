package logger

import (
	"net/url"
	"strings"
)

// SanitizedUsername masks a username for logging (e.g., "a****").
// Usernames come from unauthenticated input, so only the first rune is kept.
func SanitizedUsername(username string) string {
	runes := []rune(username)
	switch len(runes) {
	case 0:
		return ""
	case 1:
		return "*"
	default:
		return string(runes[0]) + strings.Repeat("*", len(runes)-1)
	}
}

var sensitiveParams = map[string]bool{
	"password": true,
	"token":    true,
	"secret":   true,
	"api_key":  true,
	"apikey":   true,
	"auth":     true,
	"csrf":     true,
}

// SanitizeQueryString reports whether the query string carries a sensitive
// parameter (a magic-link token, a password) and must be redacted from logs.
// Unparseable query strings are treated as sensitive.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}

	for key := range values {
		if sensitiveParams[strings.ToLower(key)] {
			return true
		}
	}
	return false
}
