package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/BradenHooton/backupsui/internal/services"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	pkglogger "github.com/BradenHooton/backupsui/pkg/logger"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	LoginWithPassword(ctx context.Context, username, password, clientIP string) (*services.LoginResult, error)
	LoginWithMagicLink(ctx context.Context, token, clientIP string) (*services.LoginResult, error)
	GenerateMagicLink(ctx context.Context, username, password, baseURL string) (*services.MagicLinkResult, error)
}

// AuthHandler handles the login, magic-link and logout endpoints
type AuthHandler struct {
	service       AuthServiceInterface
	ipResolver    *pkghttp.ClientIPResolver
	cookieConfig  auth.CookieConfig
	publicBaseURL string
	homePath      string
	auditLogger   *pkglogger.AuditLogger
	logger        *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. An empty publicBaseURL makes
// generated links use the origin of the generating request.
func NewAuthHandler(service AuthServiceInterface, ipResolver *pkghttp.ClientIPResolver, cookieConfig auth.CookieConfig, publicBaseURL string, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:       service,
		ipResolver:    ipResolver,
		cookieConfig:  cookieConfig,
		publicBaseURL: publicBaseURL,
		homePath:      "/",
		auditLogger:   auditLogger,
		logger:        logger,
	}
}

// maxAuthBodyBytes caps the JSON body of the public login endpoints
const maxAuthBodyBytes = 4 << 10

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// GenerateTokenRequest represents the request body for magic-link generation
type GenerateTokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles the interactive username/password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAuthRequest(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Missing username or password")
		return
	}

	result, err := h.service.LoginWithPassword(r.Context(), req.Username, req.Password, h.ipResolver.ClientIP(r))
	if err != nil {
		h.writeLoginError(w, err, "Missing username or password")
		return
	}

	auth.SetSessionCookie(w, result.Token, time.Until(result.ExpiresAt), h.cookieConfig)
	pkghttp.WriteMessage(w, "Login successful")
}

// MagicLogin exchanges a magic-link token for a session and redirects home
func (h *AuthHandler) MagicLogin(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		pkghttp.WriteBadRequest(w, "Missing token")
		return
	}

	result, err := h.service.LoginWithMagicLink(r.Context(), token, h.ipResolver.ClientIP(r))
	if err != nil {
		h.writeLoginError(w, err, "Missing token")
		return
	}

	auth.SetSessionCookie(w, result.Token, time.Until(result.ExpiresAt), h.cookieConfig)
	http.Redirect(w, r, h.homePath, http.StatusFound)
}

// GenerateToken builds a magic link for the submitted credentials
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req GenerateTokenRequest
	if !decodeAuthRequest(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Missing username or password")
		return
	}

	baseURL := h.publicBaseURL
	if baseURL == "" {
		baseURL = requestOrigin(r)
	}

	result, err := h.service.GenerateMagicLink(r.Context(), req.Username, req.Password, baseURL)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Missing username or password")
		case errors.Is(err, models.ErrMisconfigured):
			pkghttp.WriteInternalError(w, "Server misconfiguration")
		default:
			pkghttp.WriteInternalError(w, "Failed to generate token")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Logout clears the session cookie. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieConfig)

	h.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		Username:  auth.UsernameFromContext(r.Context()),
		IPAddress: h.ipResolver.ClientIP(r),
		Success:   true,
	})

	pkghttp.WriteMessage(w, "Logged out")
}

// writeLoginError maps auth service errors to generic client responses
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error, badRequestMessage string) {
	var throttled *models.ThrottledError
	switch {
	case errors.As(err, &throttled):
		seconds := throttled.RetryAfterSeconds()
		pkghttp.WriteTooManyRequests(w, fmt.Sprintf("Too many failed attempts. Try again in %d seconds.", seconds), seconds)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, badRequestMessage)
	case errors.Is(err, models.ErrInvalidToken),
		errors.Is(err, models.ErrTokenExpired):
		pkghttp.WriteUnauthorized(w, "Invalid or expired token")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid username or password")
	case errors.Is(err, models.ErrMisconfigured):
		pkghttp.WriteInternalError(w, "Server misconfiguration")
	default:
		h.logger.Error("login failed unexpectedly", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// decodeAuthRequest reads a size-capped JSON body into dst and writes the
// error response itself when it fails
func decodeAuthRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkghttp.WriteRequestTooLarge(w, "Request too large")
			return false
		}
		pkghttp.WriteBadRequest(w, "Invalid request")
		return false
	}
	return true
}

// requestOrigin rebuilds scheme://host for the incoming request
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
