package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Login methods recorded in logs and audit events
const (
	LoginMethodPassword  = "password"
	LoginMethodMagicLink = "magic_link"
)

// SessionClaims is the payload of the session JWT stored in the auth cookie
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// MagicLinkPayload is the plaintext sealed inside a magic-link token.
// Expiration is in epoch milliseconds.
type MagicLinkPayload struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Expiration int64  `json:"expiration"`
}

// ExpiresAt returns the payload expiration as a time.
func (p *MagicLinkPayload) ExpiresAt() time.Time {
	return time.UnixMilli(p.Expiration)
}

// ProvenCredentials is a username/password pair obtained from either the
// login form or a decoded magic link, ready to be handed to the verifier.
type ProvenCredentials struct {
	Username string
	Password string
	Method   string
}
