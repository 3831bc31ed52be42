// Package processtest provides a recording process.Runner for tests.
package processtest

import (
	"context"
	"sync"

	"tubeshelf/internal/process"
)

// HandlerFunc decides the outcome of a fake run.
type HandlerFunc func(ctx context.Context, cmd process.Command) (*process.Result, error)

// FakeRunner records every command it is asked to run and delegates the
// outcome to Handler. A nil Handler succeeds with empty output.
type FakeRunner struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []process.Command
}

// Run implements process.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return &process.Result{}, nil
	}
	result, err := handler(ctx, cmd)
	if result == nil {
		result = &process.Result{}
	}
	return result, err
}

// Calls returns a copy of the recorded commands.
func (f *FakeRunner) Calls() []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Command(nil), f.calls...)
}

// CallCount returns how many commands were run.
func (f *FakeRunner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Exit builds the error an ExecRunner returns for a non-zero exit.
func Exit(tool string, code int, stderr string) error {
	return &process.ExitError{Tool: tool, ExitCode: code, Stderr: stderr}
}
