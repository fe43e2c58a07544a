package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"snag/internal/services"
)

// RunnerCall records one invocation observed by FakeRunner.
type RunnerCall struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// RunnerResponse scripts the outcome of one FakeRunner invocation.
type RunnerResponse struct {
	Result services.CommandResult
	Err    error
	// Effect runs before the response is returned, letting tests create the
	// files a real tool would have produced.
	Effect func(call RunnerCall) error
}

// FakeRunner replays scripted responses in invocation order.
type FakeRunner struct {
	mu        sync.Mutex
	responses []RunnerResponse
	calls     []RunnerCall
}

// NewFakeRunner builds a FakeRunner from scripted responses.
func NewFakeRunner(responses ...RunnerResponse) *FakeRunner {
	return &FakeRunner{responses: responses}
}

// Run implements services.Runner.
func (f *FakeRunner) Run(ctx context.Context, binary string, args []string, timeout time.Duration) (services.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := RunnerCall{Binary: binary, Args: append([]string(nil), args...), Timeout: timeout}
	f.calls = append(f.calls, call)

	if len(f.responses) == 0 {
		return services.CommandResult{}, fmt.Errorf("unexpected invocation: %s %s", binary, strings.Join(args, " "))
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	if resp.Effect != nil {
		if err := resp.Effect(call); err != nil {
			return services.CommandResult{}, err
		}
	}
	return resp.Result, resp.Err
}

// Calls returns the invocations observed so far.
func (f *FakeRunner) Calls() []RunnerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RunnerCall(nil), f.calls...)
}
