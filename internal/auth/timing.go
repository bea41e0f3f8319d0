package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for the failed-login delay
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random jitter range in milliseconds
	DelayOnSuccess bool // If true, delay even on successful login
}

// TimingDelay pads failed logins to a jittered minimum duration, so a
// rejected token and a rejected password take about the same time.
type TimingDelay struct {
	config TimingConfig
	sleep  func(ctx context.Context, d time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  sleepContext,
	}
}

// cryptoRandIntn returns a secure random number in [0, max)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max)), nil
}

// target returns base + random jitter
func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if jitter, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(jitter) * time.Millisecond
		}
	}
	return delay
}

// WaitFrom blocks until at least the target delay has passed since start.
// Successful attempts return immediately unless DelayOnSuccess is set.
// Cancelling ctx ends the wait early.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining > 0 {
		td.sleep(ctx, remaining)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
