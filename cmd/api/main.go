package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/backupsui/internal/auth"
	"github.com/BradenHooton/backupsui/internal/background"
	"github.com/BradenHooton/backupsui/internal/backuptool"
	"github.com/BradenHooton/backupsui/internal/config"
	"github.com/BradenHooton/backupsui/internal/database"
	"github.com/BradenHooton/backupsui/internal/handlers"
	"github.com/BradenHooton/backupsui/internal/logging"
	"github.com/BradenHooton/backupsui/internal/routes"
	"github.com/BradenHooton/backupsui/internal/services"
	pkghttp "github.com/BradenHooton/backupsui/pkg/http"
	pkglogger "github.com/BradenHooton/backupsui/pkg/logger"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger, logCloser := logging.Setup(logging.Config{
		Level:      cfg.Server.LogLevel,
		FilePath:   cfg.Server.LogFile,
		MaxSizeMB:  cfg.Server.LogMaxSizeMB,
		MaxBackups: cfg.Server.LogMaxBackups,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_type", cfg.Database.Type),
	)
	if err := cfg.Database.Validate(); err != nil {
		// Not fatal: the panel still serves its login page and reports
		// misconfiguration on each login attempt.
		logger.Warn("database configuration incomplete", slog.Any("error", err))
	}

	// Backup tool
	tool := backuptool.NewClient(backuptool.Config{
		Binary:        cfg.Backup.Binary,
		TempDir:       cfg.Backup.TempDir,
		Timeout:       cfg.Backup.CommandTimeout,
		VerifyTimeout: cfg.Auth.VerifyTimeout,
	}, backuptool.ExecRunner{}, logger)

	// Auth
	var verifier services.CredentialVerifier = tool
	if cfg.Auth.Verifier == config.VerifierPostgres {
		verifier = database.NewPostgresVerifier(cfg.Database, cfg.Auth.VerifyTimeout, logger)
	}
	logger.Info("credential verifier selected", slog.String("verifier", cfg.Auth.Verifier))

	var codec services.MagicLinkCodec
	if c, err := auth.NewMagicLinkCodec(cfg.Database.Password); err != nil {
		logger.Warn("magic links disabled", slog.Any("error", err))
	} else {
		codec = c
	}

	sessions := auth.NewSessionManager(cfg.Auth.SessionSecret, auth.WithSessionLogger(logger))
	throttle := services.NewThrottleGuard(services.WithThrottleLogger(logger))
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.FailureDelayMs,
		RandomDelayMs: cfg.Auth.FailureJitterMs,
	})
	auditLogger := pkglogger.NewAuditLogger(logger)
	ipResolver := pkghttp.NewClientIPResolver(cfg.Server.TrustedProxies)

	authService := services.NewAuthService(verifier, codec, sessions, throttle, timingDelay, &cfg.Database, logger, auditLogger)
	scheduleService := services.NewScheduleService(cfg.Backup.Title, cfg.Backup.Schedule, cfg.Backup.Retention, logger)

	// Handlers
	cookieConfig := auth.CookieConfig{Secure: cfg.Server.CookieSecure}
	if !cfg.Server.CookieSecure && cfg.Server.Env == "production" {
		logger.Warn("session cookie is not marked Secure in production")
	}

	router := routes.NewRouter(routes.Config{
		Env:                     cfg.Server.Env,
		Logger:                  logger,
		IPResolver:              ipResolver,
		Sessions:                sessions,
		LoginRateLimitPerMinute: cfg.Auth.LoginRateLimitPerMinute,
	}, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, ipResolver, cookieConfig, cfg.Server.PublicBaseURL, auditLogger, logger),
		Backups: handlers.NewBackupHandler(tool, scheduleService, cfg.Server.MaxUploadBytes, logger),
		Pages:   handlers.NewPageHandler(scheduleService, logger),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start temp file cleanup
	janitor := background.NewTempJanitor(
		tool.TempDir(),
		[]string{backuptool.UploadPrefix, backuptool.DownloadPrefix},
		cfg.Backup.TempMaxAge,
		cfg.Backup.CleanupInterval,
		logger,
	)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()

	go janitor.Start(janitorCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	janitorCancel()
	janitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
