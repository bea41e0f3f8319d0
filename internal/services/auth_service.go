package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/models"
	pkglogger "github.com/BradenHooton/backupsui/pkg/logger"
)

// CredentialVerifier checks a username/password pair against the database
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) error
}

// MagicLinkCodec seals and opens magic-link tokens
type MagicLinkCodec interface {
	Encode(username, password string) (string, error)
	Decode(token string) (*models.MagicLinkPayload, error)
}

// SessionIssuer mints session tokens
type SessionIssuer interface {
	Issue(username string) (string, time.Time, error)
}

// CredentialConfig is the database configuration the verifier depends on
type CredentialConfig interface {
	Validate() error
}

// LoginResult is a freshly issued session
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Username  string
}

// MagicLinkResult is a generated login link
type MagicLinkResult struct {
	Token    string `json:"token"`
	LoginURL string `json:"loginUrl"`
}

// AuthService runs both login flows through one throttled routine
type AuthService struct {
	verifier    CredentialVerifier
	codec       MagicLinkCodec
	sessions    SessionIssuer
	throttle    *ThrottleGuard
	timing      *auth.TimingDelay
	dbConfig    CredentialConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. codec may be nil when no
// database password is configured; magic-link operations then fail as
// misconfigured while password login still reports the config error.
func NewAuthService(verifier CredentialVerifier, codec MagicLinkCodec, sessions SessionIssuer, throttle *ThrottleGuard, timing *auth.TimingDelay, dbConfig CredentialConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		verifier:    verifier,
		codec:       codec,
		sessions:    sessions,
		throttle:    throttle,
		timing:      timing,
		dbConfig:    dbConfig,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// LoginWithPassword authenticates an interactive username/password submission
func (s *AuthService) LoginWithPassword(ctx context.Context, username, password, clientIP string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	return s.authenticate(ctx, models.LoginMethodPassword, clientIP, func() (models.ProvenCredentials, error) {
		return models.ProvenCredentials{
			Username: username,
			Password: password,
			Method:   models.LoginMethodPassword,
		}, nil
	})
}

// LoginWithMagicLink authenticates with the credentials sealed in a magic-link token
func (s *AuthService) LoginWithMagicLink(ctx context.Context, token, clientIP string) (*LoginResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, models.ErrBadRequest
	}

	return s.authenticate(ctx, models.LoginMethodMagicLink, clientIP, func() (models.ProvenCredentials, error) {
		payload, err := s.codec.Decode(token)
		if err != nil {
			return models.ProvenCredentials{}, err
		}
		return models.ProvenCredentials{
			Username: payload.Username,
			Password: payload.Password,
			Method:   models.LoginMethodMagicLink,
		}, nil
	})
}

// GenerateMagicLink seals username/password into a token and builds the
// login URL under baseURL. It does not verify the credentials; a link with
// wrong credentials simply fails at login time.
func (s *AuthService) GenerateMagicLink(ctx context.Context, username, password, baseURL string) (*MagicLinkResult, error) {
	if s.codec == nil {
		s.logger.Error("magic link requested but no key material is configured")
		return nil, models.ErrMisconfigured
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	token, err := s.codec.Encode(username, password)
	if err != nil {
		s.logger.Error("failed to encode magic link", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventMagicLinkIssued,
		Username:  username,
		Method:    models.LoginMethodMagicLink,
		Success:   true,
	})

	return &MagicLinkResult{
		Token:    token,
		LoginURL: BuildLoginURL(baseURL, token),
	}, nil
}

// BuildLoginURL returns <base>/api/login?token=<escaped token>
func BuildLoginURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/login?token=" + url.QueryEscape(token)
}

// authenticate is the single login routine behind both entry points.
// The throttle slot is held from the check until the outcome is recorded.
func (s *AuthService) authenticate(ctx context.Context, method, clientIP string, prove func() (models.ProvenCredentials, error)) (*LoginResult, error) {
	if err := s.checkConfigured(method); err != nil {
		return nil, err
	}

	release, err := s.throttle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if decision := s.throttle.Check(); !decision.Allowed {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginThrottled,
			Method:        method,
			IPAddress:     clientIP,
			FailureReason: "throttled",
		})
		return nil, &models.ThrottledError{RetryAfter: decision.RetryAfter}
	}

	start := time.Now()

	creds, err := prove()
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, models.ErrTokenExpired) {
			reason = "token_expired"
		}
		s.fail(ctx, release, start, pkglogger.AuditEvent{
			Method:        method,
			IPAddress:     clientIP,
			FailureReason: reason,
		})
		return nil, err
	}

	if err := s.verifier.VerifyCredentials(ctx, creds.Username, creds.Password); err != nil {
		s.fail(ctx, release, start, pkglogger.AuditEvent{
			Username:      creds.Username,
			Method:        method,
			IPAddress:     clientIP,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrInvalidCredentials
	}

	s.throttle.RecordSuccess()

	token, expiresAt, err := s.sessions.Issue(creds.Username)
	if err != nil {
		s.logger.Error("failed to issue session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		Username:  creds.Username,
		Method:    method,
		IPAddress: clientIP,
		Success:   true,
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  creds.Username,
	}, nil
}

// fail records a counted failure, frees the slot and pads the response time
func (s *AuthService) fail(ctx context.Context, release func(), start time.Time, event pkglogger.AuditEvent) {
	s.throttle.RecordFailure()
	release()

	event.EventType = pkglogger.EventLoginFailed
	s.auditLogger.LogAuthAttempt(event)

	s.timing.WaitFrom(ctx, start, false)
}

func (s *AuthService) checkConfigured(method string) error {
	if s.dbConfig != nil {
		if err := s.dbConfig.Validate(); err != nil {
			s.logger.Error("login unavailable: database credentials not configured", slog.Any("error", err))
			return models.ErrMisconfigured
		}
	}
	if method == models.LoginMethodMagicLink && s.codec == nil {
		s.logger.Error("login unavailable: magic link key material not configured")
		return models.ErrMisconfigured
	}
	return nil
}
