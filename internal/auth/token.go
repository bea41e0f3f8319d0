package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL is the fixed lifetime of a session token and its cookie
const SessionTTL = time.Hour

// SessionManager issues and verifies the HS256 session tokens carried in
// the auth cookie. Sessions are stateless: nothing is stored server-side.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithSessionClock overrides the time source (tests)
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// WithSessionLogger sets the logger used for verification diagnostics
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// NewSessionManager creates a new SessionManager signing with secret
func NewSessionManager(secret string, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the session lifetime
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a signed session token for username
func (m *SessionManager) Issue(username string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := &models.SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims.
// Every failure is reported as models.ErrSessionInvalid.
func (m *SessionManager) Verify(tokenString string) (*models.SessionClaims, error) {
	if tokenString == "" {
		return nil, models.ErrSessionInvalid
	}

	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		m.logger.Debug("session token rejected", slog.Any("error", err))
		return nil, models.ErrSessionInvalid
	}

	if !token.Valid || claims.Username == "" {
		return nil, models.ErrSessionInvalid
	}

	return claims, nil
}
