package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"tubeshelf/internal/logging"
	"tubeshelf/internal/metrics"
)

var (
	// ErrTimeout indicates the process was killed because it exceeded its
	// configured timeout.
	ErrTimeout = errors.New("process timed out")

	// ErrLaunch indicates the process could not be started at all
	// (binary missing, not executable, bad working directory).
	ErrLaunch = errors.New("process failed to start")
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed.
const waitDelay = 5 * time.Second

// Command describes one external program invocation.
type Command struct {
	// Tool is a short stable name used for logs and metric labels ("ffmpeg").
	Tool string
	// Path is the executable, resolved through PATH when it has no separator.
	Path string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Timeout bounds the run; zero means no timeout beyond ctx.
	Timeout time.Duration
}

func (c Command) String() string {
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished process. It is returned
// alongside errors too, so callers can surface diagnostics.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError reports a process that ran and exited non-zero.
type ExitError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Runner executes external commands. The HTTP handlers and the CLI use
// ExecRunner; tests substitute processtest.FakeRunner.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec and tracks them so they can be
// killed on shutdown.
type ExecRunner struct {
	mu        sync.Mutex
	nextID    int
	processes map[int]*exec.Cmd
}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{processes: make(map[int]*exec.Cmd)}
}

// Run starts cmd, waits for it, and classifies the outcome. The returned
// error is nil, ErrTimeout, ErrLaunch, an *ExitError, or the parent
// context's error when the caller went away.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logging.Debug("Running %s: %s", cmd.Tool, cmd)

	start := time.Now()
	if err := c.Start(); err != nil {
		metrics.ProcessRunsTotal.WithLabelValues(cmd.Tool, "launch_error").Inc()
		return &Result{}, fmt.Errorf("%w: %s: %w", ErrLaunch, cmd.Tool, err)
	}

	id := r.track(c)
	metrics.ProcessesRunning.WithLabelValues(cmd.Tool).Inc()

	err := c.Wait()

	r.untrack(id)
	metrics.ProcessesRunning.WithLabelValues(cmd.Tool).Dec()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	metrics.ProcessDuration.WithLabelValues(cmd.Tool).Observe(result.Duration.Seconds())

	err = classify(ctx, runCtx, cmd, result, err)
	metrics.ProcessRunsTotal.WithLabelValues(cmd.Tool, statusLabel(err)).Inc()

	if err != nil {
		logging.Debug("%s finished with error after %v: %v", cmd.Tool, result.Duration, err)
	} else {
		logging.Debug("%s finished in %v", cmd.Tool, result.Duration)
	}

	return result, err
}

func classify(parent, runCtx context.Context, cmd Command, result *Result, err error) error {
	if err == nil {
		return nil
	}

	// The caller's context ending takes priority over our own deadline.
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", cmd.Tool, parent.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %v", cmd.Tool, ErrTimeout, cmd.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Tool:     cmd.Tool,
			ExitCode: exitErr.ExitCode(),
			Stderr:   result.Stderr,
			Err:      err,
		}
	}

	return fmt.Errorf("%s: %w", cmd.Tool, err)
}

func statusLabel(err error) string {
	var exitErr *ExitError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &exitErr):
		return "exit_error"
	default:
		return "launch_error"
	}
}

func (r *ExecRunner) track(c *exec.Cmd) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.processes[r.nextID] = c
	return r.nextID
}

func (r *ExecRunner) untrack(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processes, id)
}

// Running returns the number of processes currently tracked.
func (r *ExecRunner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processes)
}

// Cleanup kills all running processes.
func (r *ExecRunner) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.processes {
		if c.Process != nil {
			logging.Info("Killing external process: %s (pid %d)", c.Path, c.Process.Pid)
			if err := c.Process.Kill(); err != nil {
				logging.Warn("failed to kill process %d: %v", c.Process.Pid, err)
			}
		}
	}
}

// Diagnostics returns the most useful human-readable output for a failed
// run: stderr when present, otherwise the error text.
func Diagnostics(result *Result, err error) string {
	if result != nil {
		if s := strings.TrimSpace(result.Stderr); s != "" {
			return s
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// LookPath reports where an executable resolves to, for startup checks.
func LookPath(path string) (string, error) {
	return exec.LookPath(path)
}
