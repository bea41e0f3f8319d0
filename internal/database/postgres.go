package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/backupsui/internal/config"
	"github.com/BradenHooton/backupsui/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultConnectTimeout bounds a single credential probe
const DefaultConnectTimeout = 10 * time.Second

// SQLSTATE codes PostgreSQL returns for rejected logins
const (
	codeInvalidPassword      = "28P01"
	codeInvalidAuthorization = "28000"
)

type conn interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// PostgresVerifier checks credentials by opening a short-lived connection to
// the configured PostgreSQL server as the given user. It is the in-process
// alternative to the backup tool's check-login command.
type PostgresVerifier struct {
	cfg     config.DatabaseConfig
	timeout time.Duration
	logger  *slog.Logger
	connect func(ctx context.Context, cc *pgx.ConnConfig) (conn, error)
}

// NewPostgresVerifier creates a verifier for the server described by cfg.
// cfg.User and cfg.Password are ignored; each probe uses the submitted pair.
func NewPostgresVerifier(cfg config.DatabaseConfig, timeout time.Duration, logger *slog.Logger) *PostgresVerifier {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &PostgresVerifier{
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
		connect: func(ctx context.Context, cc *pgx.ConnConfig) (conn, error) {
			return pgx.ConnectConfig(ctx, cc)
		},
	}
}

// VerifyCredentials connects and pings as username. Authentication
// failures map to models.ErrInvalidCredentials; anything else is returned
// wrapped so the caller can log it.
func (v *PostgresVerifier) VerifyCredentials(ctx context.Context, username, password string) error {
	cc, err := v.connConfig(username, password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	c, err := v.connect(ctx, cc)
	if err != nil {
		mapped := MapConnectError(err)
		v.logger.Warn("postgres credential probe failed",
			slog.String("username", username),
			slog.String("host", v.cfg.Host),
			slog.Any("error", err),
		)
		return mapped
	}
	defer func() { _ = c.Close(context.Background()) }()

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// connConfig parses the server part of the DSN and sets the credentials
// directly, so they never pass through DSN quoting.
func (v *PostgresVerifier) connConfig(username, password string) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(ServerDSN(v.cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	cc.User = username
	cc.Password = password
	return cc, nil
}

// ServerDSN renders host, port, database and sslmode as a keyword/value
// connection string without credentials
func ServerDSN(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	parts := []string{
		"host=" + quoteDSNValue(cfg.Host),
		"port=" + quoteDSNValue(cfg.Port),
		"dbname=" + quoteDSNValue(cfg.Name),
		"sslmode=" + quoteDSNValue(sslMode),
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// MapConnectError classifies a pgx connect error
func MapConnectError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidPassword, codeInvalidAuthorization:
			return models.ErrInvalidCredentials
		}
	}

	return fmt.Errorf("postgres unreachable: %w", err)
}
