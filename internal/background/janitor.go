package background

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TempJanitor periodically removes transfer files left in the temp
// directory by backup commands that crashed or were killed mid-transfer.
type TempJanitor struct {
	dir      string
	prefixes []string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTempJanitor creates a janitor for files in dir whose name starts with
// one of prefixes and whose mtime is older than maxAge
func NewTempJanitor(dir string, prefixes []string, maxAge, interval time.Duration, logger *slog.Logger) *TempJanitor {
	return &TempJanitor{
		dir:      dir,
		prefixes: prefixes,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. It blocks until Stop or ctx is done.
func (j *TempJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on startup
	j.Sweep()

	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-j.stopCh:
			j.logger.Info("temp janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("temp janitor context cancelled")
			return
		}
	}
}

// Sweep removes stale transfer files once and returns how many were removed
func (j *TempJanitor) Sweep() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		j.logger.Error("failed to read temp dir", slog.String("dir", j.dir), slog.Any("error", err))
		return 0
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !j.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			j.logger.Warn("failed to remove stale temp file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("stale temp files removed", slog.Int("count", removed))
	}
	return removed
}

func (j *TempJanitor) matches(name string) bool {
	for _, prefix := range j.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Stop signals the janitor to stop. Safe to call more than once.
func (j *TempJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}
