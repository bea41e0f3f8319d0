// Package logging builds the application logger: JSON to stdout, and
// optionally a size-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level (debug, info, warn, error). Defaults to info.
	Level string
	// FilePath enables a rotated log file in addition to stdout when non-empty.
	FilePath string
	// MaxSizeMB is the size at which the log file is rotated. Default 10.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept. Default 3.
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup creates the logger, installs it as the slog default and returns a
// closer for the log file (a no-op when file logging is disabled).
func Setup(cfg Config) (*slog.Logger, io.Closer) {
	return setup(cfg, os.Stdout)
}

func setup(cfg Config, console io.Writer) (*slog.Logger, io.Closer) {
	var (
		w                = console
		closer io.Closer = nopCloser{}
	)

	if cfg.FilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := cfg.MaxBackups
		if maxBackups < 0 {
			maxBackups = 3
		}

		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxSize,    // megabytes
			MaxBackups: maxBackups, // number of backups
			MaxAge:     0,          // don't delete old files based on age
			Compress:   true,
		}
		w = io.MultiWriter(console, lj)
		closer = lj
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}))
	slog.SetDefault(logger)

	return logger, closer
}

// ParseLevel converts a string level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
