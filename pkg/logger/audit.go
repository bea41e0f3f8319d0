package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types for login attempts
const (
	EventLoginSuccess    = "login_success"
	EventLoginFailed     = "login_failed"
	EventLoginThrottled  = "login_throttled"
	EventMagicLinkIssued = "magic_link_issued"
	EventLogout          = "logout"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Username      string
	Method        string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security events to the application log.
// There is no separate audit store; the console log is the audit trail.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", SanitizedUsername(event.Username)))
	}
	if event.Method != "" {
		attrs = append(attrs, slog.String("method", event.Method))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
