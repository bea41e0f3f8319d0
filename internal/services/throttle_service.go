package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// throttleFreeFailures is how many consecutive failures are allowed
	// before backoff starts
	throttleFreeFailures = 3
	// throttleMaxShift caps the backoff exponent; 2^27 minutes still fits a Duration
	throttleMaxShift = 27
)

// ThrottleDecision is the outcome of ThrottleGuard.Check
type ThrottleDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// ThrottleGuard is the process-wide brute-force guard for login attempts.
// It counts consecutive failures across all clients; after the third, each
// attempt must wait 2^(failures-3) minutes from the last failure. The
// counter is only reset by a successful login.
type ThrottleGuard struct {
	mu            sync.Mutex
	failures      int
	lastFailureAt time.Time

	slot   chan struct{}
	now    func() time.Time
	logger *slog.Logger
}

// ThrottleOption configures a ThrottleGuard
type ThrottleOption func(*ThrottleGuard)

// WithThrottleClock overrides the time source (tests)
func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(g *ThrottleGuard) {
		g.now = now
	}
}

// WithThrottleLogger sets the logger used for lockout messages
func WithThrottleLogger(logger *slog.Logger) ThrottleOption {
	return func(g *ThrottleGuard) {
		g.logger = logger
	}
}

// NewThrottleGuard creates a new ThrottleGuard with a zero failure count
func NewThrottleGuard(opts ...ThrottleOption) *ThrottleGuard {
	g := &ThrottleGuard{
		slot:   make(chan struct{}, 1),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire reserves the single login slot. Holding it across check, verify
// and record makes each attempt atomic with respect to other attempts.
// The returned release func must be called exactly once.
func (g *ThrottleGuard) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-g.slot })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Check reports whether a login attempt may proceed right now
func (g *ThrottleGuard) Check() ThrottleDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failures < throttleFreeFailures {
		return ThrottleDecision{Allowed: true}
	}

	window := backoffWindow(g.failures)
	elapsed := g.now().Sub(g.lastFailureAt)
	if elapsed >= window {
		return ThrottleDecision{Allowed: true}
	}

	return ThrottleDecision{
		Allowed:    false,
		RetryAfter: window - elapsed,
	}
}

// RecordFailure counts a failed attempt and stamps its time
func (g *ThrottleGuard) RecordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	g.lastFailureAt = g.now()

	if g.failures >= throttleFreeFailures {
		g.logger.Warn("login throttle engaged",
			slog.Int("consecutive_failures", g.failures),
			slog.Duration("lockout", backoffWindow(g.failures)))
	}
}

// RecordSuccess clears the failure counter
func (g *ThrottleGuard) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failures > 0 {
		g.logger.Info("login throttle reset", slog.Int("previous_failures", g.failures))
	}
	g.failures = 0
	g.lastFailureAt = time.Time{}
}

// Failures returns the current consecutive failure count
func (g *ThrottleGuard) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// backoffWindow returns 2^(failures-3) minutes
func backoffWindow(failures int) time.Duration {
	shift := failures - throttleFreeFailures
	if shift < 0 {
		return 0
	}
	if shift > throttleMaxShift {
		shift = throttleMaxShift
	}
	return time.Duration(1<<uint(shift)) * time.Minute
}
