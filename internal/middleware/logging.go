package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter records the status and body size of a response for the
// access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode, rw.wroteHeader = code, true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the streaming code needs for per-write deadlines.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths []string
	// MediaPaths are prefixes of routes that return video or image bytes.
	// They are logged only when LogStaticFiles is set.
	MediaPaths      []string
	SkipExtensions  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs API and health requests and leaves out media.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		MediaPaths:      []string{"/api/videos/serve/", "/api/videos/thumbnail/"},
		SkipExtensions:  []string{".ico", ".png", ".jpg", ".jpeg", ".mp4", ".webm"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// skipFunc builds the predicate deciding which paths go unlogged.
func (c LoggingConfig) skipFunc() func(path string) bool {
	prefixes := append([]string(nil), c.SkipPaths...)
	var suffixes []string
	if !c.LogStaticFiles {
		prefixes = append(prefixes, c.MediaPaths...)
		for _, ext := range c.SkipExtensions {
			suffixes = append(suffixes, strings.ToLower(ext))
		}
	}
	skipHealth := !c.LogHealthChecks

	return func(path string) bool {
		if skipHealth && healthCheckPaths[path] {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		lower := strings.ToLower(path)
		for _, s := range suffixes {
			if strings.HasSuffix(lower, s) {
				return true
			}
		}
		return false
	}
}

// w3cFields lists the fields of every access log line, in order.
const w3cFields = "date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken " +
	"sc(Content-Encoding) cs(User-Agent) cs(Referer) x-request-id"

// W3CLogger writes access logs in the W3C Extended Log Format.
type W3CLogger struct {
	software string
	out      *log.Logger
}

// NewW3CLogger creates a logger writing through the standard logger and
// emits the directive header describing its fields.
func NewW3CLogger(software string) *W3CLogger {
	l := &W3CLogger{software: software, out: log.Default()}
	l.out.Printf("#Software: %s", l.software)
	l.out.Print("#Version: 1.0")
	l.out.Printf("#Fields: %s", w3cFields)
	return l
}

// Logger returns HTTP logging middleware using W3C Extended Log Format
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	logger := NewW3CLogger("tubeshelf")
	skip := config.skipFunc()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			logger.logRequest(r, rw, time.Since(start))
		})
	}
}

// logRequest writes one access log line. Every request-controlled value is
// sanitized first so it cannot forge extra lines.
func (l *W3CLogger) logRequest(r *http.Request, rw *responseWriter, elapsed time.Duration) {
	now := time.Now().UTC()

	fields := []string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(sanitizeLogField(getClientIP(r))),
		orDash(sanitizeLogField(r.Method)),
		orDash(sanitizeLogField(r.URL.Path)),
		orDash(sanitizeLogField(r.URL.RawQuery)),
		strconv.Itoa(rw.statusCode),
		strconv.FormatInt(rw.bytesWritten, 10),
		strconv.FormatFloat(elapsed.Seconds(), 'f', 3, 64),
		orDash(rw.Header().Get("Content-Encoding")),
		orDash(quoteW3CField(sanitizeLogField(r.Header.Get("User-Agent")))),
		orDash(quoteW3CField(sanitizeLogField(r.Header.Get("Referer")))),
		orDash(sanitizeLogField(rw.Header().Get(RequestIDHeader))),
	}

	l.out.Print(strings.Join(fields, " ")) //nolint:gosec // fields are sanitized above
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sanitizeLogField turns CR and LF into spaces and drops every other
// control character except tab.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// quoteW3CField wraps values containing whitespace or quotes in double
// quotes, doubling any embedded quote.
func quoteW3CField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
