package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandResult captures a finished subprocess invocation.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Diagnostic renders the captured output for error reports and logs.
func (r CommandResult) Diagnostic() string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit=%d", r.ExitCode)
	if out := strings.TrimSpace(r.Stdout); out != "" {
		b.WriteString("\nstdout:\n")
		b.WriteString(out)
	}
	if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(errOut)
	}
	return b.String()
}

// Runner abstracts subprocess execution so tool clients are testable without
// real binaries. Run blocks until the command exits, the timeout elapses, or
// ctx is cancelled. A non-zero exit is reported via the error while the
// captured output remains available in the result.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, timeout time.Duration) (CommandResult, error)
}

// ErrCommandTimeout marks subprocess invocations terminated by their timeout.
var ErrCommandTimeout = errors.New("command timed out")

// NewRunner returns the os/exec backed Runner.
func NewRunner() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, binary string, args []string, timeout time.Duration) (CommandResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		result.ExitCode = -1
	}

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return result, fmt.Errorf("%w after %s: %s", ErrCommandTimeout, timeout, binary)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, fmt.Errorf("%s exited with status %d", binary, result.ExitCode)
		}
		return result, fmt.Errorf("run %s: %w", binary, err)
	}
	return result, nil
}
