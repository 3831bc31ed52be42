package streaming

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"tubeshelf/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write exceeded WriteTimeout, that no
	// data flowed for IdleTimeout, or that MaxDuration was reached.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed while still in use.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout bounds a single chunk write
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time between successful writes
	IdleTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited)
	MaxDuration time.Duration
	// ChunkSize is the size of chunks to write (0 = write as received)
	ChunkSize int
	// OnProgress is called roughly every MiB with bytes written so far
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultTimeoutWriterConfig returns the defaults used for video responses.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter so slow or vanished clients
// cannot hold a stream open forever. Per-write deadlines are applied through
// http.ResponseController; writers that do not support deadlines (such as
// httptest.ResponseRecorder) are written to directly.
type TimeoutWriter struct {
	w          http.ResponseWriter
	rc         *http.ResponseController
	parent     context.Context
	ctx        context.Context
	cancel     context.CancelFunc
	config     TimeoutWriterConfig
	deadlines  bool
	startTime  time.Time
	nextReport int64

	mu           sync.Mutex
	lastWrite    time.Time
	bytesWritten int64
	closed       bool
	timedOut     bool
}

const progressInterval = 1024 * 1024

// NewTimeoutWriter creates a new timeout-protected writer
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	now := time.Now()

	tw := &TimeoutWriter{
		w:          w,
		rc:         http.NewResponseController(w),
		parent:     ctx,
		ctx:        writerCtx,
		cancel:     cancel,
		config:     config,
		deadlines:  config.WriteTimeout > 0,
		startTime:  now,
		lastWrite:  now,
		nextReport: progressInterval,
	}

	go tw.idleChecker()

	return tw
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if err := tw.check(); err != nil {
			return total, err
		}

		chunk := len(p)
		if tw.config.ChunkSize > 0 && chunk > tw.config.ChunkSize {
			chunk = tw.config.ChunkSize
		}

		n, err := tw.writeChunk(p[:chunk])
		total += n
		if err != nil {
			return total, err
		}
		p = p[chunk:]
	}
	return total, nil
}

// check reports why the stream must stop, if it must.
func (tw *TimeoutWriter) check() error {
	tw.mu.Lock()
	closed, timedOut := tw.closed, tw.timedOut
	tw.mu.Unlock()

	switch {
	case timedOut:
		return ErrWriteTimeout
	case tw.parent.Err() != nil:
		return ErrClientGone
	case closed:
		return ErrStreamCanceled
	case tw.config.MaxDuration > 0 && time.Since(tw.startTime) > tw.config.MaxDuration:
		return ErrWriteTimeout
	}
	return nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	if tw.deadlines {
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout)); err != nil {
			if !errors.Is(err, http.ErrNotSupported) {
				return 0, err
			}
			tw.deadlines = false
		}
	}

	n, err := tw.w.Write(p)
	if err != nil {
		if tw.parent.Err() != nil {
			return n, ErrClientGone
		}
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return n, ErrWriteTimeout
		}
		return n, err
	}

	if flushErr := tw.rc.Flush(); flushErr != nil && !errors.Is(flushErr, http.ErrNotSupported) {
		return n, flushErr
	}

	tw.mu.Lock()
	tw.lastWrite = time.Now()
	tw.bytesWritten += int64(n)
	written := tw.bytesWritten
	tw.mu.Unlock()

	if tw.config.OnProgress != nil && written >= tw.nextReport {
		tw.nextReport = written + progressInterval
		tw.config.OnProgress(written, time.Since(tw.startTime))
	}

	return n, nil
}

type timeoutError interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}

// idleChecker cancels the stream when nothing has been written for IdleTimeout.
func (tw *TimeoutWriter) idleChecker() {
	if tw.config.IdleTimeout <= 0 {
		return
	}

	interval := tw.config.IdleTimeout / 4
	if interval <= 0 {
		interval = tw.config.IdleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			if idle > tw.config.IdleTimeout && !tw.closed {
				tw.timedOut = true
			}
			timedOut := tw.timedOut
			tw.mu.Unlock()

			if timedOut {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				tw.cancel()
				return
			}

		case <-tw.ctx.Done():
			return
		}
	}
}

// Close stops the idle checker. Further writes fail with ErrStreamCanceled.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}

	tw.closed = true
	tw.cancel()
	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}
