package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
)

// Result is the normalized outcome of one external tool invocation.
// A non-zero exit is a normal Result, not an error.
type Result struct {
	Success  bool
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// LaunchError reports that the executable could not be started at all
// (missing binary, permission denied).
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to run %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a LaunchError caused by a missing executable.
func IsNotFound(err error) bool {
	var le *LaunchError
	return errors.As(err, &le) && errors.Is(le.Err, exec.ErrNotFound)
}

// Runner invokes an external command and waits for it to exit.
// The gateway applies no timeout of its own; ctx is the caller's policy.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Result{Success: true, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{
			Success:  false,
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
		}, nil
	}

	log.Printf("gateway: could not launch %s: %v", name, err)
	return Result{}, &LaunchError{Command: name, Err: err}
}
