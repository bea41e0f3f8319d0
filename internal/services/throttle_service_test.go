package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/backupsui/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(clock *fakeClock) *services.ThrottleGuard {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return services.NewThrottleGuard(
		services.WithThrottleClock(clock.Now),
		services.WithThrottleLogger(logger),
	)
}

func TestThrottleGuard_AllowsFirstThreeFailures(t *testing.T) {
	clock := newFakeClock()
	guard := newTestGuard(clock)

	for i := 0; i < 3; i++ {
		assert.True(t, guard.Check().Allowed, "attempt %d", i+1)
		guard.RecordFailure()
	}
	assert.Equal(t, 3, guard.Failures())
}

func TestThrottleGuard_FourthAttemptWithinMinuteIsDenied(t *testing.T) {
	clock := newFakeClock()
	guard := newTestGuard(clock)

	for i := 0; i < 3; i++ {
		guard.RecordFailure()
	}

	clock.Advance(10 * time.Second)
	decision := guard.Check()
	assert.False(t, decision.Allowed)
	assert.Equal(t, 50*time.Second, decision.RetryAfter)

	clock.Advance(51 * time.Second)
	assert.True(t, guard.Check().Allowed)
	assert.Equal(t, 3, guard.Failures(), "elapsed window must not reset the counter")
}

func TestThrottleGuard_WindowDoublesPerFailure(t *testing.T) {
	clock := newFakeClock()
	guard := newTestGuard(clock)

	for i := 0; i < 3; i++ {
		guard.RecordFailure()
	}

	var previous time.Duration
	for n := 4; n <= 10; n++ {
		decision := guard.Check()
		require.False(t, decision.Allowed, "failures=%d", guard.Failures())

		expected := time.Duration(1<<uint(guard.Failures()-3)) * time.Minute
		assert.Equal(t, expected, decision.RetryAfter)
		assert.GreaterOrEqual(t, decision.RetryAfter, previous)
		previous = decision.RetryAfter

		// wait out the window, then fail again
		clock.Advance(decision.RetryAfter)
		require.True(t, guard.Check().Allowed)
		guard.RecordFailure()
	}
}

func TestThrottleGuard_SuccessResetsCounter(t *testing.T) {
	clock := newFakeClock()
	guard := newTestGuard(clock)

	for i := 0; i < 5; i++ {
		guard.RecordFailure()
	}
	guard.RecordSuccess()

	assert.Equal(t, 0, guard.Failures())
	assert.True(t, guard.Check().Allowed)

	guard.RecordFailure()
	assert.Equal(t, 1, guard.Failures())
	assert.True(t, guard.Check().Allowed)
}

func TestThrottleGuard_HugeCountDoesNotOverflow(t *testing.T) {
	clock := newFakeClock()
	guard := newTestGuard(clock)

	for i := 0; i < 200; i++ {
		guard.RecordFailure()
	}

	decision := guard.Check()
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestThrottleGuard_AcquireSerializesAttempts(t *testing.T) {
	guard := newTestGuard(newFakeClock())

	release, err := guard.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = guard.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	release2, err := guard.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestThrottleGuard_ConcurrentFailuresAreNotUndercounted(t *testing.T) {
	clock := newFakeClock()
	guard := newTestGuard(clock)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := guard.Acquire(context.Background())
			if err != nil {
				return
			}
			defer release()

			if !guard.Check().Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
			guard.RecordFailure()
		}()
	}
	wg.Wait()

	// clock never advances: exactly three attempts get through
	assert.Equal(t, 3, allowed)
	assert.Equal(t, 3, guard.Failures())
}
