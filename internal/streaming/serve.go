package streaming

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tubeshelf/internal/logging"
	"tubeshelf/internal/metrics"
)

// ErrNotStarted wraps failures that happened before any response byte was
// sent, so the caller can still reply with an error status.
var ErrNotStarted = errors.New("stream not started")

// ServeFile writes the whole of r as a 200 response of size bytes with the
// given content type. Range requests are not supported and are answered
// with the full body.
func ServeFile(ctx context.Context, w http.ResponseWriter, r io.Reader, size int64, contentType string, config TimeoutWriterConfig) error {
	bufSize := config.ChunkSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	br := bufio.NewReaderSize(r, bufSize)

	// Surface unreadable files before committing to a status code.
	if _, err := br.Peek(1); err != nil && !errors.Is(err, io.EOF) {
		metrics.StreamsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrNotStarted, err)
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	h.Set("Accept-Ranges", "none")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	_, err := io.Copy(tw, br)

	written, duration := tw.Stats()
	metrics.StreamBytesTotal.Add(float64(written))
	metrics.StreamsTotal.WithLabelValues(streamStatus(err)).Inc()
	logging.Debug("Stream finished: %d of %d bytes in %v (err: %v)", written, size, duration, err)

	return err
}

func streamStatus(err error) string {
	switch {
	case err == nil:
		return "complete"
	case errors.Is(err, ErrClientGone):
		return "client_gone"
	case errors.Is(err, ErrWriteTimeout):
		return "timeout"
	default:
		return "error"
	}
}
