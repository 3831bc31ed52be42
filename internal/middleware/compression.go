package middleware

import (
	"bytes"
	"compress/gzip"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize int
	// Level is the gzip level, gzip.HuffmanOnly through gzip.BestCompression.
	Level int
	// CompressibleTypes lists the media types that are compressed.
	CompressibleTypes []string
	// SkipPaths are prefixes whose responses are passed through untouched.
	// Video streams and thumbnails are listed here so they are never buffered.
	SkipPaths []string
}

// DefaultCompressionConfig returns the settings used by the server.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
			"application/openmetrics-text",
		},
		SkipPaths: []string{"/api/videos/serve/", "/api/videos/thumbnail/"},
	}
}

// One pool per gzip level, indexed by level - gzip.HuffmanOnly.
var gzipPools [gzip.BestCompression - gzip.HuffmanOnly + 1]sync.Pool

func validLevel(level int) int {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return gzip.DefaultCompression
	}
	return level
}

func getGzipWriter(w http.ResponseWriter, level int) *gzip.Writer {
	if zw, ok := gzipPools[level-gzip.HuffmanOnly].Get().(*gzip.Writer); ok {
		zw.Reset(w)
		return zw
	}
	zw, _ := gzip.NewWriterLevel(w, level)
	return zw
}

func putGzipWriter(zw *gzip.Writer, level int) {
	gzipPools[level-gzip.HuffmanOnly].Put(zw)
}

type writeMode int

const (
	modeBuffering writeMode = iota
	modeIdentity
	modeGzip
)

// compressWriter holds the body back until MinSize bytes have arrived (or
// the handler finishes) and then commits to either gzip or identity.
type compressWriter struct {
	http.ResponseWriter
	config CompressionConfig
	level  int

	mode   writeMode
	status int
	buf    bytes.Buffer
	zw     *gzip.Writer
}

func newCompressWriter(w http.ResponseWriter, config CompressionConfig) *compressWriter {
	return &compressWriter{
		ResponseWriter: w,
		config:         config,
		level:          validLevel(config.Level),
		status:         http.StatusOK,
	}
}

// WriteHeader records the status; it is sent once the encoding is chosen.
func (c *compressWriter) WriteHeader(status int) {
	if c.mode == modeBuffering {
		c.status = status
	}
}

func (c *compressWriter) Write(p []byte) (int, error) {
	switch c.mode {
	case modeGzip:
		return c.zw.Write(p)
	case modeIdentity:
		return c.ResponseWriter.Write(p)
	}

	c.buf.Write(p)
	if c.buf.Len() >= c.config.MinSize {
		if err := c.commit(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// commit picks the encoding, sends the header and drains the buffer.
func (c *compressWriter) commit() error {
	if c.mode != modeBuffering {
		return nil
	}

	h := c.Header()
	if c.buf.Len() >= c.config.MinSize && bodyAllowed(c.status) &&
		h.Get("Content-Encoding") == "" && c.compressible(h.Get("Content-Type")) {
		c.mode = modeGzip
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		c.zw = getGzipWriter(c.ResponseWriter, c.level)
	} else {
		c.mode = modeIdentity
	}

	c.ResponseWriter.WriteHeader(c.status)
	if c.buf.Len() == 0 {
		return nil
	}
	var err error
	if c.mode == modeGzip {
		_, err = c.zw.Write(c.buf.Bytes())
	} else {
		_, err = c.ResponseWriter.Write(c.buf.Bytes())
	}
	c.buf = bytes.Buffer{}
	return err
}

func (c *compressWriter) compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(c.config.CompressibleTypes, mediaType)
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}

// Close flushes whatever is still buffered and releases the gzip writer.
func (c *compressWriter) Close() error {
	err := c.commit()
	if c.zw != nil {
		if cerr := c.zw.Close(); err == nil {
			err = cerr
		}
		putGzipWriter(c.zw, c.level)
		c.zw = nil
	}
	return err
}

// Flush commits to an encoding early so streamed responses are not held back.
func (c *compressWriter) Flush() {
	_ = c.commit()
	if c.zw != nil {
		_ = c.zw.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (c *compressWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

// acceptsGzip reports whether an Accept-Encoding value allows gzip. An
// explicit gzip entry takes precedence over "*", and q=0 excludes.
func acceptsGzip(header string) bool {
	gzipQ, anyQ := -1.0, -1.0
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch strings.ToLower(strings.TrimSpace(coding)) {
		case "gzip":
			gzipQ = qValue(params)
		case "*":
			anyQ = qValue(params)
		}
	}
	if gzipQ >= 0 {
		return gzipQ > 0
	}
	return anyQ > 0
}

// qValue returns the q parameter of an Accept-Encoding entry, 1 when absent.
func qValue(params string) float64 {
	for _, p := range strings.Split(params, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "q") {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return v
		}
	}
	return 1
}

// Compression returns a middleware that gzips compressible responses for
// clients that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) ||
				slices.ContainsFunc(config.SkipPaths, func(prefix string) bool {
					return strings.HasPrefix(r.URL.Path, prefix)
				}) {
				next.ServeHTTP(w, r)
				return
			}

			cw := newCompressWriter(w, config)
			defer cw.Close()
			next.ServeHTTP(cw, r)
		})
	}
}
