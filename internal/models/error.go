package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrThrottled          = errors.New("too many failed attempts")
	ErrMisconfigured      = errors.New("server misconfiguration")

	// Backup tool errors
	ErrBackupFailed = errors.New("backup command failed")
)

// ThrottledError carries the remaining lockout window of a denied login attempt.
// It matches ErrThrottled under errors.Is.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s: retry in %d seconds", ErrThrottled.Error(), e.RetryAfterSeconds())
}

func (e *ThrottledError) Unwrap() error {
	return ErrThrottled
}

// RetryAfterSeconds rounds the remaining window up to whole seconds.
func (e *ThrottledError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
