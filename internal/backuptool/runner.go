package backuptool

import (
	"context"
	"os/exec"
)

// Runner runs an external command and returns its combined output
// (stdout+stderr). Tests substitute a fake so no process is spawned.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Run calls f(ctx, name, args...)
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args; the process is killed when ctx is done
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
