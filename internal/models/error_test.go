package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottledError_RetryAfterSeconds(t *testing.T) {
	tests := []struct {
		retryAfter time.Duration
		want       int
	}{
		{60 * time.Second, 60},
		{59*time.Second + time.Millisecond, 60},
		{500 * time.Millisecond, 1},
		{0, 0},
	}

	for _, tt := range tests {
		err := &ThrottledError{RetryAfter: tt.retryAfter}
		assert.Equal(t, tt.want, err.RetryAfterSeconds(), tt.retryAfter.String())
	}
}

func TestThrottledError_MatchesSentinel(t *testing.T) {
	var err error = fmt.Errorf("login: %w", &ThrottledError{RetryAfter: time.Minute})

	assert.True(t, errors.Is(err, ErrThrottled))

	var throttled *ThrottledError
	assert.True(t, errors.As(err, &throttled))
	assert.Equal(t, time.Minute, throttled.RetryAfter)
	assert.Contains(t, err.Error(), "retry in 60 seconds")
}
